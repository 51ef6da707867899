package web

import (
	"errors"
	"net/http"

	"github.com/SigNoz/storefront-go-app/internal/cart"
	"github.com/SigNoz/storefront-go-app/internal/checkout"
	"github.com/SigNoz/storefront-go-app/internal/middleware"
	"github.com/SigNoz/storefront-go-app/internal/models"
	"github.com/SigNoz/storefront-go-app/internal/session"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type catalogItem struct {
	models.Product
	InCart int
}

type storeView struct {
	Products []catalogItem
	Lines    []cart.Line
	Total    decimal.Decimal
}

type checkoutView struct {
	Lines          []cart.Line
	Total          decimal.Decimal
	PaymentMethods []models.PaymentMethod
	Details        checkout.Details
	Submitting     bool
}

// StoreHandler handles GET /store
func (a *App) StoreHandler(w http.ResponseWriter, r *http.Request) {
	basket := a.basket(r)

	products, err := a.client(r).ListProducts(r.Context(), a.config.StoreOwner)
	if err != nil {
		a.flashError(r, "Erro ao carregar produtos", err)
	}

	items := make([]catalogItem, len(products))
	for i, p := range products {
		items[i] = catalogItem{Product: p, InCart: basket.Cart.Quantity(p.ID)}
	}

	a.render(w, r, http.StatusOK, "store", "Loja", storeView{
		Products: items,
		Lines:    basket.Cart.Lines(),
		Total:    basket.Cart.Total(),
	})
}

// AddToCartHandler handles POST /store/cart/add. The product is looked up in a
// fresh catalog fetch so the stock ceiling is the latest one reported.
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PostFormValue("product_id")

	products, err := a.client(r).ListProducts(r.Context(), a.config.StoreOwner)
	if err != nil {
		a.flashError(r, "Erro ao adicionar produto", err)
		redirect(w, r, "/store")
		return
	}

	var product *models.Product
	for i := range products {
		if products[i].ID == id {
			product = &products[i]
			break
		}
	}
	if product == nil {
		a.flash(r, session.LevelWarning, "Produto não encontrado", "")
		redirect(w, r, "/store")
		return
	}

	basket := a.basket(r)
	notice := basket.Cart.Add(*product)
	a.metrics.RecordCartAdd(r.Context(), notice.String(), basket.Cart.Len())
	a.flash(r, session.Level(notice.Level()), notice.Message(), product.Name)
	redirect(w, r, "/store")
}

// RemoveFromCartHandler handles POST /store/cart/remove
func (a *App) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	notice := a.basket(r).Cart.Remove(r.PostFormValue("product_id"))
	a.flash(r, session.Level(notice.Level()), notice.Message(), "")

	back := "/store/cart"
	if r.PostFormValue("from") == "store" {
		back = "/store"
	}
	redirect(w, r, back)
}

// CartHandler handles GET /store/cart
func (a *App) CartHandler(w http.ResponseWriter, r *http.Request) {
	basket := a.basket(r)
	a.render(w, r, http.StatusOK, "cart", "Carrinho", storeView{
		Lines: basket.Cart.Lines(),
		Total: basket.Cart.Total(),
	})
}

// CheckoutPageHandler handles GET /store/checkout
func (a *App) CheckoutPageHandler(w http.ResponseWriter, r *http.Request) {
	basket := a.basket(r)
	if basket.Cart.IsEmpty() {
		a.flash(r, session.LevelInfo, "Seu carrinho está vazio", "")
		redirect(w, r, "/store")
		return
	}

	basket.Checkout.Open()
	a.renderCheckout(w, r, http.StatusOK, basket)
}

// CheckoutHandler handles POST /store/checkout
func (a *App) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	basket := a.basket(r)
	details := checkout.Details{
		BuyerName:     r.PostFormValue("nomeCliente"),
		PaymentMethod: models.PaymentMethod(r.PostFormValue("metodoPagamento")),
	}

	_, err := basket.Checkout.Confirm(r.Context(), details)
	switch {
	case err == nil:
		a.flash(r, session.LevelSuccess, "Compra realizada com sucesso!", "")
		redirect(w, r, "/thank-you")
	case errors.Is(err, checkout.ErrEmptyCart):
		a.flash(r, session.LevelInfo, "Seu carrinho está vazio", "")
		redirect(w, r, "/store")
	case errors.Is(err, checkout.ErrInFlight):
		a.flash(r, session.LevelInfo, "Seu pedido já está sendo processado", "")
		a.renderCheckout(w, r, http.StatusConflict, basket)
	case errors.Is(err, checkout.ErrSubmitFailed) && errors.Is(err, checkout.ErrValidation):
		// the buyer's fields passed, so the order itself is misconfigured
		a.logger.Error("order rejected before submission",
			zap.Error(err),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		a.flash(r, session.LevelError, "Erro ao finalizar compra", "Tente novamente.")
		a.renderCheckout(w, r, http.StatusInternalServerError, basket)
	case errors.Is(err, checkout.ErrValidation):
		a.flash(r, session.LevelWarning, "Preencha todos os campos", "Informe seu nome e a forma de pagamento.")
		a.renderCheckout(w, r, http.StatusUnprocessableEntity, basket)
	default:
		a.flashError(r, "Erro ao finalizar compra", err)
		a.renderCheckout(w, r, http.StatusBadGateway, basket)
	}
}

func (a *App) renderCheckout(w http.ResponseWriter, r *http.Request, status int, basket *cart.Basket) {
	a.render(w, r, status, "checkout", "Finalizar compra", checkoutView{
		Lines:          basket.Cart.Lines(),
		Total:          basket.Cart.Total(),
		PaymentMethods: models.PaymentMethods,
		Details:        basket.Checkout.Details(),
		Submitting:     basket.Checkout.State() == checkout.StateSubmitting,
	})
}

// ThankYouHandler handles GET /thank-you
func (a *App) ThankYouHandler(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "thank_you", "Obrigado!", a.basket(r).Checkout.LastOrder())
}
