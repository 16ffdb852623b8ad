package config

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

const connectRetryDelay = 3 * time.Second

// DSN builds the driver DSN. parseTime is required to scan created_at columns.
func (d DB) DSN() string {
	mc := mysql.NewConfig()
	mc.User = d.User
	mc.Passwd = d.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	mc.DBName = d.Name
	mc.ParseTime = true
	mc.MultiStatements = true
	return mc.FormatDSN()
}

// ConnectDB opens the pool and pings it, retrying while the database comes up.
func ConnectDB(ctx context.Context, d DB) (*sqlx.DB, error) {
	retries := d.ConnectRetries
	if retries <= 0 {
		retries = 1
	}

	var err error
	for i := 0; i < retries; i++ {
		var db *sqlx.DB
		db, err = sqlx.Open("mysql", d.DSN())
		if err == nil {
			db.SetMaxOpenConns(d.PoolSize)
			db.SetMaxIdleConns(d.PoolSize)
			db.SetConnMaxLifetime(5 * time.Minute)

			err = db.PingContext(ctx)
			if err == nil {
				logger.Info().Str("db", d.Name).Int("pool_size", d.PoolSize).Msg("Connected to DB")
				return db, nil
			}
			_ = db.Close()
		}
		logger.Warn().Err(err).Int("attempt", i+1).Str("db", d.Name).Str("host", d.Host).Msg("Failed to connect to DB")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectRetryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to DB %s at %s:%d after retries: %w", d.Name, d.Host, d.Port, err)
}
