// Package checkout turns a cart into a submitted order.
//
// A Workflow moves from StateCollectingInfo to StateSubmitting on Confirm and
// ends in StateSucceeded or StateFailed. Only one submission may be in flight
// at a time. The cart is cleared only after the API accepted the order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SigNoz/storefront-go-app/internal/metrics"
	"github.com/SigNoz/storefront-go-app/internal/models"
	"github.com/shopspring/decimal"
)

// State is the position of a Workflow
type State string

const (
	StateCollectingInfo State = "collecting-info"
	StateSubmitting     State = "submitting"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
)

var (
	// ErrValidation matches a missing buyer name or payment method
	ErrValidation = models.ErrValidation
	// ErrEmptyCart is returned when there is nothing to buy
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInFlight is returned when a submission is already running
	ErrInFlight = errors.New("order submission already in progress")
	// ErrSubmitFailed wraps errors from the API
	ErrSubmitFailed = errors.New("order submission failed")
)

// Cart is the part of the cart engine the workflow needs
type Cart interface {
	OrderLines() []models.OrderLine
	Total() decimal.Decimal
	IsEmpty() bool
	Clear()
}

// Submitter sends an order to the storefront API
type Submitter interface {
	SubmitOrder(ctx context.Context, order models.Order) error
}

// Details are the fields collected from the buyer
type Details struct {
	BuyerName     string
	PaymentMethod models.PaymentMethod
}

// Validate checks the buyer name and payment method
func (d Details) Validate() error {
	var errs []error
	if strings.TrimSpace(d.BuyerName) == "" {
		errs = append(errs, &models.ValidationError{Field: "nomeCliente", Reason: "is required"})
	}
	if !d.PaymentMethod.Valid() {
		errs = append(errs, &models.ValidationError{Field: "metodoPagamento", Reason: "is required"})
	}
	return errors.Join(errs...)
}

// Option configures a Workflow
type Option func(*Workflow)

// WithClock replaces time.Now for the order date
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// WithMetrics records order outcomes
func WithMetrics(m *metrics.AppMetrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

// Workflow is one shopper's checkout
type Workflow struct {
	cart      Cart
	submitter Submitter
	owner     string
	now       func() time.Time
	metrics   *metrics.AppMetrics

	mu      sync.Mutex
	state   State
	details Details
	last    *models.Order
}

// New creates a workflow for cart that submits orders on behalf of the store owner
func New(cart Cart, submitter Submitter, owner string, opts ...Option) *Workflow {
	w := &Workflow{
		cart:      cart,
		submitter: submitter,
		owner:     owner,
		now:       time.Now,
		metrics:   metrics.NewNoop(),
		state:     StateCollectingInfo,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Open resets the workflow for a fresh checkout surface. It is a no-op while
// a submission is running.
func (w *Workflow) Open() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateSubmitting {
		return
	}
	w.state = StateCollectingInfo
	w.details = Details{}
}

// State returns the current state
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Details returns the fields of the last confirm attempt
func (w *Workflow) Details() Details {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.details
}

// LastOrder returns the order accepted by the last successful Confirm
func (w *Workflow) LastOrder() *models.Order {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Confirm validates d, submits the cart as an order and clears the cart on success
func (w *Workflow) Confirm(ctx context.Context, d Details) (*models.Order, error) {
	d.BuyerName = strings.TrimSpace(d.BuyerName)

	w.mu.Lock()
	if w.state == StateSubmitting {
		w.mu.Unlock()
		return nil, ErrInFlight
	}
	w.details = d
	if err := d.Validate(); err != nil {
		w.state = StateCollectingInfo
		w.mu.Unlock()
		return nil, err
	}
	if w.cart.IsEmpty() {
		w.state = StateCollectingInfo
		w.mu.Unlock()
		return nil, ErrEmptyCart
	}

	order := models.Order{
		BuyerName:     d.BuyerName,
		PaymentMethod: d.PaymentMethod,
		Owner:         w.owner,
		Date:          models.NewDate(w.now()),
		Lines:         w.cart.OrderLines(),
	}
	w.state = StateSubmitting
	w.mu.Unlock()

	err := w.submitter.SubmitOrder(ctx, order)
	w.metrics.RecordOrder(ctx, string(order.PaymentMethod), len(order.Lines), order.Total(), err)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.state = StateFailed
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	w.cart.Clear()
	w.state = StateSucceeded
	w.last = &order
	return &order, nil
}
