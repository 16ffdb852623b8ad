package mailer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"bookstore-service/internal/entity"
)

type ReceiptItem struct {
	Title  string
	Author string
	Type   entity.ItemType
	Price  decimal.Decimal
}

// Receipt is the order confirmation mailed to a customer after checkout.
type Receipt struct {
	OrderID       int64
	Customer      string
	CreatedAt     time.Time
	Items         []ReceiptItem
	Total         decimal.Decimal
	PaymentStatus entity.PaymentStatus
}

func (r Receipt) Subject() string {
	return fmt.Sprintf("Order Confirmation - Order #%d", r.OrderID)
}

var receiptTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"upper": func(t entity.ItemType) string { return strings.ToUpper(string(t)) },
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date":  func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
}).Parse(`ONLINE BOOKSTORE - ORDER RECEIPT
Order ID: #{{.OrderID}}
Customer: {{.Customer}}
Date: {{date .CreatedAt}}

ORDER ITEMS:
{{range $i, $item := .Items}}
{{inc $i}}. {{$item.Title}} by {{$item.Author}}
   Type: {{upper $item.Type}}
   Price: ${{money $item.Price}}
{{end}}

TOTAL AMOUNT: ${{money .Total}}
Payment Status: {{.PaymentStatus}}
`))

// RenderReceipt produces the plain-text body of the receipt.
func RenderReceipt(r Receipt) (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}
