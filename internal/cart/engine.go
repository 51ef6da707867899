// Package cart keeps the products a shopper intends to buy.
//
// An Engine holds at most one Line per product id. A line's quantity never
// exceeds the stock reported on the product snapshot passed to the last Add;
// stock is not re-checked against the API.
package cart

import (
	"sync"

	"github.com/SigNoz/storefront-go-app/internal/models"
	"github.com/shopspring/decimal"
)

// Notice is the outcome of a cart mutation, shown to the shopper as a toast
type Notice int

const (
	NoticeAdded Notice = iota
	NoticeIncremented
	NoticeMaxReached
	NoticeOutOfStock
	NoticeRemoved
)

// Level returns the toast severity for n
func (n Notice) Level() string {
	switch n {
	case NoticeAdded, NoticeIncremented:
		return "success"
	case NoticeMaxReached, NoticeOutOfStock:
		return "warning"
	default:
		return "info"
	}
}

// Message returns the toast text for n
func (n Notice) Message() string {
	switch n {
	case NoticeAdded, NoticeIncremented:
		return "Produto adicionado ao carrinho"
	case NoticeMaxReached:
		return "Quantidade máxima atingida"
	case NoticeOutOfStock:
		return "Produto sem estoque"
	case NoticeRemoved:
		return "Produto removido do carrinho"
	default:
		return ""
	}
}

// String returns a metric-friendly name for n
func (n Notice) String() string {
	switch n {
	case NoticeAdded:
		return "added"
	case NoticeIncremented:
		return "incremented"
	case NoticeMaxReached:
		return "max_reached"
	case NoticeOutOfStock:
		return "out_of_stock"
	case NoticeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Line is one product's selection
type Line struct {
	Product  models.Product
	Quantity int
}

// Subtotal returns unit price times quantity
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Engine is a shopping cart. It is safe for concurrent use.
type Engine struct {
	mu    sync.Mutex
	lines map[string]*Line
	order []string
}

// NewEngine returns an empty cart
func NewEngine() *Engine {
	return &Engine{lines: make(map[string]*Line)}
}

// Add puts one unit of p in the cart, up to p.Quantity units. p replaces the
// stored snapshot, and a line holding more than the new stock is cut back to it.
func (e *Engine) Add(p models.Product) Notice {
	e.mu.Lock()
	defer e.mu.Unlock()

	line, ok := e.lines[p.ID]
	if !ok {
		if p.Quantity <= 0 {
			return NoticeOutOfStock
		}
		e.lines[p.ID] = &Line{Product: p, Quantity: 1}
		e.order = append(e.order, p.ID)
		return NoticeAdded
	}

	line.Product = p
	switch {
	case p.Quantity <= 0:
		e.remove(p.ID)
		return NoticeOutOfStock
	case line.Quantity > p.Quantity:
		// stock dropped since the last add
		line.Quantity = p.Quantity
		return NoticeMaxReached
	case line.Quantity < p.Quantity:
		line.Quantity++
		return NoticeIncremented
	}
	return NoticeMaxReached
}

// Remove deletes the line for id, whatever its quantity
func (e *Engine) Remove(id string) Notice {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.remove(id)
	return NoticeRemoved
}

func (e *Engine) remove(id string) {
	if _, ok := e.lines[id]; !ok {
		return
	}
	delete(e.lines, id)
	for i, lineID := range e.order {
		if lineID == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Total returns the sum of every line's subtotal
func (e *Engine) Total() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := decimal.Zero
	for _, line := range e.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Clear empties the cart
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lines = make(map[string]*Line)
	e.order = nil
}

// Lines returns a copy of the lines in the order they were first added
func (e *Engine) Lines() []Line {
	e.mu.Lock()
	defer e.mu.Unlock()

	lines := make([]Line, 0, len(e.order))
	for _, id := range e.order {
		lines = append(lines, *e.lines[id])
	}
	return lines
}

// Quantity returns the selected quantity of product id
func (e *Engine) Quantity(id string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if line, ok := e.lines[id]; ok {
		return line.Quantity
	}
	return 0
}

// Len returns the number of distinct products
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.lines)
}

// Units returns the number of units across all lines
func (e *Engine) Units() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, line := range e.lines {
		n += line.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines
func (e *Engine) IsEmpty() bool {
	return e.Len() == 0
}

// OrderLines snapshots name, quantity and price of every line
func (e *Engine) OrderLines() []models.OrderLine {
	lines := e.Lines()
	out := make([]models.OrderLine, len(lines))
	for i, l := range lines {
		out[i] = models.OrderLine{
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.Price,
		}
	}
	return out
}
