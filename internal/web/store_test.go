package web

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/SigNoz/storefront-go-app/internal/checkout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func add(v *visitor, id string) {
	v.t.Helper()
	assertRedirect(v.t, v.post("/store/cart/add", url.Values{"product_id": {id}}), "/store")
}

func TestStoreListsOwnerCatalog(t *testing.T) {
	env := setupApp(t)
	v := env.visitor(t)

	rec := v.get("/store")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Caneca")
	assert.Contains(t, body, "R$ 10,00")
	assert.Contains(t, body, "Sem estoque")
	assert.Equal(t, 1, env.api.count(http.MethodGet, "/app/produtos/"+owner))
}

func TestAddToCartRespectsStock(t *testing.T) {
	env := setupApp(t)
	v := env.visitor(t)

	for i := 0; i < 4; i++ {
		add(v, "p1")
	}
	assert.Equal(t, 2, v.basket().Cart.Quantity("p1"))
	assert.Contains(t, v.get("/store").Body.String(), "Quantidade máxima atingida")

	add(v, "p3")
	assert.Zero(t, v.basket().Cart.Quantity("p3"))
}

func TestAddUnknownProduct(t *testing.T) {
	env := setupApp(t)
	v := env.visitor(t)

	add(v, "nope")
	assert.True(t, v.basket().Cart.IsEmpty())
	assert.Contains(t, v.get("/store").Body.String(), "Produto não encontrado")
}

func TestRemoveFromCart(t *testing.T) {
	env := setupApp(t)
	v := env.visitor(t)
	add(v, "p1")
	add(v, "p1")
	add(v, "p2")
	// consume the add toasts, they name the products
	v.get("/store/cart")

	assertRedirect(t, v.post("/store/cart/remove", url.Values{"product_id": {"p1"}}), "/store/cart")

	rec := v.get("/store/cart")
	assert.Contains(t, rec.Body.String(), "Produto removido do carrinho")
	assert.Contains(t, rec.Body.String(), "Total: R$ 5,50")
	assert.NotContains(t, rec.Body.String(), "Caneca")
}

func TestCartShowsTotal(t *testing.T) {
	env := setupApp(t)
	v := env.visitor(t)
	add(v, "p1")
	add(v, "p1")
	add(v, "p2")

	assert.Contains(t, v.get("/store/cart").Body.String(), "Total: R$ 25,50")
}

func TestCheckoutWithEmptyCartRedirects(t *testing.T) {
	env := setupApp(t)
	v := env.visitor(t)

	assertRedirect(t, v.get("/store/checkout"), "/store")
}

func TestCheckoutValidationMakesNoCall(t *testing.T) {
	env := setupApp(t)
	v := env.visitor(t)
	add(v, "p1")
	require.Equal(t, http.StatusOK, v.get("/store/checkout").Code)

	rec := v.post("/store/checkout", url.Values{"nomeCliente": {""}, "metodoPagamento": {"pix"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Preencha todos os campos")
	assert.Zero(t, env.api.count(http.MethodPost, "/app/venda"))
	assert.Equal(t, checkout.StateCollectingInfo, v.basket().Checkout.State())
}

func TestCheckoutSuccess(t *testing.T) {
	env := setupApp(t)
	v := env.visitor(t)
	add(v, "p1")
	add(v, "p1")
	add(v, "p2")

	rec := v.post("/store/checkout", url.Values{"nomeCliente": {"Maria"}, "metodoPagamento": {"pix"}})
	assertRedirect(t, rec, "/thank-you")

	assert.Equal(t, 1, env.api.count(http.MethodPost, "/app/venda"))
	sent := env.api.lastCall(t, http.MethodPost, "/app/venda")
	assert.Equal(t, "Maria", sent.Body["nomeCliente"])
	assert.Equal(t, "pix", sent.Body["metodoPagamento"])
	assert.Equal(t, owner, sent.Body["usuario"])
	assert.Len(t, sent.Body["produtos"], 2)

	assert.True(t, v.basket().Cart.IsEmpty())
	assert.True(t, v.basket().Cart.Total().IsZero())

	page := v.get("/thank-you").Body.String()
	assert.Contains(t, page, "Compra realizada com sucesso!")
	assert.Contains(t, page, "Maria")
	assert.Contains(t, page, "R$ 25,50")
}

func TestCheckoutFailureKeepsCart(t *testing.T) {
	env := setupApp(t)
	env.api.failVenda = true
	v := env.visitor(t)
	add(v, "p1")

	rec := v.post("/store/checkout", url.Values{"nomeCliente": {"Maria"}, "metodoPagamento": {"money"}})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Erro ao finalizar compra")
	assert.Contains(t, rec.Body.String(), "falha no banco")
	// the form keeps what the buyer typed
	assert.Contains(t, rec.Body.String(), `value="Maria"`)

	assert.Equal(t, 1, v.basket().Cart.Quantity("p1"))
	assert.Equal(t, checkout.StateFailed, v.basket().Checkout.State())
}

func TestCheckoutWithoutStoreOwnerIsNotAFormError(t *testing.T) {
	env := setupAppWithOrderOwner(t, "")
	v := env.visitor(t)
	add(v, "p1")

	rec := v.post("/store/checkout", url.Values{"nomeCliente": {"Maria"}, "metodoPagamento": {"pix"}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Erro ao finalizar compra")
	assert.NotContains(t, rec.Body.String(), "Preencha todos os campos")
	assert.Zero(t, env.api.count(http.MethodPost, "/app/venda"))

	assert.Equal(t, 1, v.basket().Cart.Quantity("p1"))
	assert.Equal(t, checkout.StateFailed, v.basket().Checkout.State())
}

func TestVisitorsHaveSeparateCarts(t *testing.T) {
	env := setupApp(t)
	a := env.visitor(t)
	b := env.visitor(t)

	add(a, "p1")
	b.get("/store")

	assert.Equal(t, 1, a.basket().Cart.Units())
	assert.True(t, b.basket().Cart.IsEmpty())
}
