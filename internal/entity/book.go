package entity

import "github.com/shopspring/decimal"

type Book struct {
	ID        int64           `db:"id" json:"id"`
	Title     string          `db:"title" json:"title"`
	Author    string          `db:"author" json:"author"`
	PriceBuy  decimal.Decimal `db:"price_buy" json:"price_buy"`
	PriceRent decimal.Decimal `db:"price_rent" json:"price_rent"`
	Available bool            `db:"available" json:"available"`
}

// PriceFor returns the catalog price charged for the given item type.
func (b Book) PriceFor(t ItemType) decimal.Decimal {
	if t == ItemRent {
		return b.PriceRent
	}
	return b.PriceBuy
}

/*
Mysql Schema:

CREATE TABLE books (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	author VARCHAR(255) NOT NULL,
	price_buy DECIMAL(10,2) NOT NULL,
	price_rent DECIMAL(10,2) NOT NULL,
	available BOOLEAN NOT NULL DEFAULT TRUE
);
*/
