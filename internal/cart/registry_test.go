package cart

import (
	"context"
	"testing"
	"time"

	"github.com/SigNoz/storefront-go-app/internal/checkout"
	"github.com/SigNoz/storefront-go-app/internal/metrics"
	"github.com/SigNoz/storefront-go-app/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type okSubmitter struct{}

func (okSubmitter) SubmitOrder(context.Context, models.Order) error { return nil }

func newRegistry(t *testing.T, cfg RegistryConfig) *Registry {
	t.Helper()
	cfg.Submitter = okSubmitter{}
	cfg.Owner = "loja"
	r := NewRegistry(cfg, metrics.NewNoop(), zap.NewNop())
	t.Cleanup(r.Close)
	return r
}

func TestRegistryGetReturnsSameBasket(t *testing.T) {
	r := newRegistry(t, RegistryConfig{MonitorInterval: time.Hour})

	a := r.Get("s1")
	a.Cart.Add(product("p", "1.00", 1))

	assert.Same(t, a, r.Get("s1"))
	assert.NotSame(t, a, r.Get("s2"))
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 1, r.Active())
}

func TestRegistryBasketCheckoutUsesCart(t *testing.T) {
	r := newRegistry(t, RegistryConfig{MonitorInterval: time.Hour})

	b := r.Get("s1")
	b.Cart.Add(product("p", "4.00", 2))
	order, err := b.Checkout.Confirm(context.Background(), checkout.Details{BuyerName: "Maria", PaymentMethod: models.PaymentPix})
	require.NoError(t, err)

	assert.Equal(t, "loja", order.Owner)
	assert.True(t, b.Cart.IsEmpty())
}

func TestRegistryDrop(t *testing.T) {
	r := newRegistry(t, RegistryConfig{MonitorInterval: time.Hour})

	first := r.Get("s1")
	r.Drop("s1")
	assert.Zero(t, r.Len())
	assert.NotSame(t, first, r.Get("s1"))
}

func TestRegistryEvictsIdleBaskets(t *testing.T) {
	r := newRegistry(t, RegistryConfig{IdleTimeout: 10 * time.Millisecond, MonitorInterval: 5 * time.Millisecond})
	r.Get("s1")

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRegistryCloseIsIdempotent(t *testing.T) {
	r := NewRegistry(RegistryConfig{Submitter: okSubmitter{}}, metrics.NewNoop(), zap.NewNop())
	r.Close()
	assert.NotPanics(t, r.Close)
}
