package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SigNoz/storefront-go-app/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCart is a fixed list of lines
type fakeCart struct {
	mu    sync.Mutex
	lines []models.OrderLine
}

func (c *fakeCart) OrderLines() []models.OrderLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.OrderLine(nil), c.lines...)
}

func (c *fakeCart) Total() decimal.Decimal {
	return models.SumLines(c.OrderLines())
}

func (c *fakeCart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

func (c *fakeCart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

type recordingSubmitter struct {
	calls   atomic.Int32
	err     error
	release chan struct{}
	orders  chan models.Order
}

func (s *recordingSubmitter) SubmitOrder(ctx context.Context, order models.Order) error {
	s.calls.Add(1)
	if s.orders != nil {
		s.orders <- order
	}
	if s.release != nil {
		<-s.release
	}
	return s.err
}

func newCart() *fakeCart {
	return &fakeCart{lines: []models.OrderLine{
		{Name: "Caneca", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		{Name: "Camiseta", Quantity: 1, UnitPrice: decimal.RequireFromString("5.50")},
	}}
}

var fixedNow = func() time.Time { return time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC) }

func TestConfirmRejectsEmptyBuyerName(t *testing.T) {
	sub := &recordingSubmitter{}
	w := New(newCart(), sub, "loja")

	_, err := w.Confirm(context.Background(), Details{BuyerName: "  ", PaymentMethod: models.PaymentPix})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, sub.calls.Load())
	assert.Equal(t, StateCollectingInfo, w.State())
}

func TestConfirmRejectsUnknownPaymentMethod(t *testing.T) {
	sub := &recordingSubmitter{}
	w := New(newCart(), sub, "loja")

	_, err := w.Confirm(context.Background(), Details{BuyerName: "Maria", PaymentMethod: "boleto"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, sub.calls.Load())
}

func TestConfirmRejectsEmptyCart(t *testing.T) {
	sub := &recordingSubmitter{}
	w := New(&fakeCart{}, sub, "loja")

	_, err := w.Confirm(context.Background(), Details{BuyerName: "Maria", PaymentMethod: models.PaymentPix})
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, sub.calls.Load())
}

func TestConfirmSubmitsOnceAndClearsCart(t *testing.T) {
	sub := &recordingSubmitter{orders: make(chan models.Order, 1)}
	cart := newCart()
	w := New(cart, sub, "loja", WithClock(fixedNow))

	order, err := w.Confirm(context.Background(), Details{BuyerName: " Maria ", PaymentMethod: models.PaymentPix})
	require.NoError(t, err)

	assert.EqualValues(t, 1, sub.calls.Load())
	sent := <-sub.orders
	assert.Equal(t, "Maria", sent.BuyerName)
	assert.Equal(t, models.PaymentPix, sent.PaymentMethod)
	assert.Equal(t, "loja", sent.Owner)
	assert.Equal(t, "2024-03-09", sent.Date.String())
	require.Len(t, sent.Lines, 2)
	assert.Equal(t, "25.5", order.Total().String())

	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.Total().IsZero())
	assert.Equal(t, StateSucceeded, w.State())
	assert.Same(t, order, w.LastOrder())
}

func TestConfirmFailureKeepsCart(t *testing.T) {
	apiErr := errors.New("status 500")
	sub := &recordingSubmitter{err: apiErr}
	cart := newCart()
	w := New(cart, sub, "loja")

	_, err := w.Confirm(context.Background(), Details{BuyerName: "Maria", PaymentMethod: models.PaymentCash})
	assert.ErrorIs(t, err, ErrSubmitFailed)
	assert.ErrorIs(t, err, apiErr)
	assert.Equal(t, StateFailed, w.State())
	assert.Len(t, cart.OrderLines(), 2)
	assert.Nil(t, w.LastOrder())

	// manual retry
	sub.err = nil
	_, err = w.Confirm(context.Background(), Details{BuyerName: "Maria", PaymentMethod: models.PaymentCash})
	require.NoError(t, err)
	assert.EqualValues(t, 2, sub.calls.Load())
}

func TestConcurrentConfirmIssuesOneCall(t *testing.T) {
	sub := &recordingSubmitter{release: make(chan struct{}), orders: make(chan models.Order, 1)}
	w := New(newCart(), sub, "loja")
	d := Details{BuyerName: "Maria", PaymentMethod: models.PaymentPix}

	first := make(chan error, 1)
	go func() {
		_, err := w.Confirm(context.Background(), d)
		first <- err
	}()
	<-sub.orders
	assert.Equal(t, StateSubmitting, w.State())

	_, err := w.Confirm(context.Background(), d)
	assert.ErrorIs(t, err, ErrInFlight)

	close(sub.release)
	require.NoError(t, <-first)
	assert.EqualValues(t, 1, sub.calls.Load())
}

func TestOpenResets(t *testing.T) {
	w := New(&fakeCart{}, &recordingSubmitter{}, "loja")
	w.Confirm(context.Background(), Details{BuyerName: "Maria", PaymentMethod: models.PaymentPix})
	assert.Equal(t, "Maria", w.Details().BuyerName)

	w.Open()
	assert.Equal(t, StateCollectingInfo, w.State())
	assert.Empty(t, w.Details().BuyerName)
	assert.Empty(t, w.Details().PaymentMethod)
}
