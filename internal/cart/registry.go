package cart

import (
	"context"
	"sync"
	"time"

	"github.com/SigNoz/storefront-go-app/internal/checkout"
	"github.com/SigNoz/storefront-go-app/internal/metrics"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Basket is the cart and checkout of one visitor
type Basket struct {
	Cart     *Engine
	Checkout *checkout.Workflow

	lastUsed time.Time
}

// RegistryConfig configures a Registry
type RegistryConfig struct {
	Submitter checkout.Submitter
	Owner     string
	// IdleTimeout evicts baskets untouched for longer than this. Zero keeps them forever.
	IdleTimeout time.Duration
	// MonitorInterval is how often the active carts gauge is recorded
	MonitorInterval time.Duration
	CheckoutOptions []checkout.Option
}

// Registry holds one Basket per session id, in memory only
type Registry struct {
	cfg     RegistryConfig
	metrics *metrics.AppMetrics
	logger  *zap.Logger

	mu      sync.Mutex
	baskets map[string]*Basket

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a registry and starts its monitor
func NewRegistry(cfg RegistryConfig, m *metrics.AppMetrics, logger *zap.Logger) *Registry {
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = 30 * time.Second
	}
	r := &Registry{
		cfg:     cfg,
		metrics: m,
		logger:  logger,
		baskets: make(map[string]*Basket),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.monitorActiveCarts()
	return r
}

// Get returns the basket for sessionID, creating it on first use
func (r *Registry) Get(sessionID string) *Basket {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.baskets[sessionID]
	if !ok {
		engine := NewEngine()
		b = &Basket{
			Cart:     engine,
			Checkout: checkout.New(engine, r.cfg.Submitter, r.cfg.Owner, r.cfg.CheckoutOptions...),
		}
		r.baskets[sessionID] = b
	}
	b.lastUsed = time.Now()
	return b
}

// Drop forgets the basket of sessionID
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.baskets, sessionID)
}

// Active returns the number of baskets with at least one line
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, b := range r.baskets {
		if !b.Cart.IsEmpty() {
			n++
		}
	}
	return n
}

// Len returns the number of baskets held
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.baskets)
}

// evictIdle removes baskets not used since the idle timeout
func (r *Registry) evictIdle(now time.Time) int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, b := range r.baskets {
		if now.Sub(b.lastUsed) > r.cfg.IdleTimeout {
			delete(r.baskets, id)
			evicted++
		}
	}
	return evicted
}

// monitorActiveCarts periodically evicts idle baskets and updates the active carts count
func (r *Registry) monitorActiveCarts() {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			if evicted := r.evictIdle(now); evicted > 0 {
				r.logger.Debug("evicted idle baskets", zap.Int("count", evicted))
			}
			ctx := context.Background()
			r.metrics.ActiveCartsCount.Record(ctx, int64(r.Active()), metric.WithAttributes(r.metrics.WithServiceName(nil)...))
		}
	}
}

// Close stops the monitor
func (r *Registry) Close() {
	r.stopOnce.Do(func() {
		close(r.stop)
		<-r.done
	})
}
