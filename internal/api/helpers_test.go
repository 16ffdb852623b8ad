package api

import (
	"strconv"

	"github.com/shopspring/decimal"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
