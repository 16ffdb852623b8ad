// Package migrations holds the versioned MySQL schema and applies it with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	pkgerrors "github.com/pkg/errors"
)

//go:embed sql/*.sql
var files embed.FS

// open builds a migrator on its own connection pool. Closing the migrator closes the pool.
func open(dsn string) (*migrate.Migrate, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open db")
	}
	src, err := iofs.New(files, "sql")
	if err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "open migration source")
	}
	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "open migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "mysql", driver)
	if err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "init migrator")
	}
	return m, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
func Up(dsn string) error {
	return run(dsn, (*migrate.Migrate).Up)
}

// Down rolls back every migration.
func Down(dsn string) error {
	return run(dsn, (*migrate.Migrate).Down)
}

// Version returns the current schema version; 0 means no migration was applied.
func Version(dsn string) (uint, bool, error) {
	m, err := open(dsn)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func run(dsn string, step func(*migrate.Migrate) error) error {
	m, err := open(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return pkgerrors.Wrap(err, "migrate")
	}
	return nil
}
