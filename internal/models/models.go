package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The storefront API speaks JSON numbers for prices.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a catalog entry owned by the remote API
type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"nome"`
	Description string          `json:"descricao"`
	Price       decimal.Decimal `json:"preco"`
	Quantity    int             `json:"quantidade"`
	Category    string          `json:"categoria"`
	Image       string          `json:"imagem"`
	Owner       string          `json:"usuario,omitempty"`
}

// InStock reports whether at least one unit is available
func (p Product) InStock() bool {
	return p.Quantity > 0
}

// ImageOrPlaceholder returns the product image, falling back to a placeholder
func (p Product) ImageOrPlaceholder() string {
	if p.Image == "" {
		return "https://via.placeholder.com/300"
	}
	return p.Image
}

// Category represents a product category
type Category struct {
	ID    string `json:"_id"`
	Name  string `json:"nome"`
	Owner string `json:"usuario,omitempty"`
}

// PaymentMethod is the closed set of payment options offered at checkout
type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit"
	PaymentDebitCard  PaymentMethod = "debit"
	PaymentPix        PaymentMethod = "pix"
	PaymentCash       PaymentMethod = "money"
)

// PaymentMethods lists the valid methods in display order
var PaymentMethods = []PaymentMethod{PaymentCreditCard, PaymentDebitCard, PaymentPix, PaymentCash}

var paymentLabels = map[PaymentMethod]string{
	PaymentCreditCard: "Cartão de Crédito",
	PaymentDebitCard:  "Cartão de Débito",
	PaymentPix:        "PIX",
	PaymentCash:       "Dinheiro",
}

// Valid reports whether m is one of the enumerated payment methods
func (m PaymentMethod) Valid() bool {
	_, ok := paymentLabels[m]
	return ok
}

// Label returns the human readable name of the method
func (m PaymentMethod) Label() string {
	if label, ok := paymentLabels[m]; ok {
		return label
	}
	return string(m)
}

// ParsePaymentMethod validates a submitted payment method value
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.TrimSpace(s))
	if !m.Valid() {
		return "", &ValidationError{Field: "paymentMethod", Reason: fmt.Sprintf("unknown payment method %q", s)}
	}
	return m, nil
}

// Date is a calendar date, encoded as YYYY-MM-DD
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate truncates t to its calendar date
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// String returns the wire form of the date
func (d Date) String() string {
	return d.Format(dateLayout)
}

// Display formats the date as dd/mm/yyyy
func (d Date) Display() string {
	if d.IsZero() {
		return "-"
	}
	return d.Format("02/01/2006")
}

// MarshalJSON encodes the date as a YYYY-MM-DD string
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts a plain date or a full RFC 3339 timestamp
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = NewDate(t)
	return nil
}

// OrderLine is a product snapshot taken when an order is submitted
type OrderLine struct {
	Name      string          `json:"nome"`
	Quantity  int             `json:"quantidade"`
	UnitPrice decimal.Decimal `json:"preco"`
}

// Subtotal returns unit price times quantity
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order represents a purchase submitted at checkout. It is never modified after it is built.
type Order struct {
	BuyerName     string        `json:"nomeCliente"`
	PaymentMethod PaymentMethod `json:"metodoPagamento,omitempty"`
	Owner         string        `json:"usuario"`
	Date          Date          `json:"data"`
	Lines         []OrderLine   `json:"produtos"`
}

// Total sums the line subtotals
func (o Order) Total() decimal.Decimal {
	return SumLines(o.Lines)
}

// Sale is an order as stored by the remote API
type Sale struct {
	ID string `json:"_id"`
	Order
}

// ItemCount returns the number of lines in the sale
func (s Sale) ItemCount() int {
	return len(s.Lines)
}

// SumLines adds up the subtotals of lines
func SumLines(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
