package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/SigNoz/storefront-go-app/internal/models"
	"github.com/SigNoz/storefront-go-app/internal/session"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type productsView struct {
	Products   []models.Product
	Categories []models.Category
	Form       models.ProductInput
	Editing    bool
}

type categoriesView struct {
	Categories []models.Category
	Form       models.CategoryInput
	Editing    bool
}

type saleRow struct {
	models.Sale
	Expanded bool
}

type salesView struct {
	Sales   []saleRow
	Revenue decimal.Decimal
}

// confirmView backs the delete confirmation step of every resource
type confirmView struct {
	Kind   string
	Name   string
	Action string
	Back   string
}

// DashboardHandler handles GET /admin
func (a *App) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "admin", "Painel", nil)
}

// ListProductsHandler handles GET /admin/produtos. ?edit={id} prefills the form.
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	view := a.loadProducts(r)

	if id := r.URL.Query().Get("edit"); id != "" {
		if p, ok := findProduct(view.Products, id); ok {
			view.Form = models.ProductInputFrom(p)
			view.Editing = true
		} else {
			a.flash(r, session.LevelWarning, "Produto não encontrado", "")
		}
	}
	a.render(w, r, http.StatusOK, "products", "Produtos", view)
}

func (a *App) loadProducts(r *http.Request) productsView {
	client := a.client(r)
	var view productsView

	products, err := client.ListProducts(r.Context(), a.session(r).Username)
	if err != nil {
		a.flashError(r, "Erro ao carregar produtos", err)
	}
	view.Products = products

	categories, err := client.ListCategories(r.Context())
	if err != nil {
		a.flashError(r, "Erro ao carregar categorias", err)
	}
	view.Categories = categories
	return view
}

// CreateProductHandler handles POST /admin/produtos
func (a *App) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	in, err := productInputFromForm(r)
	if err == nil {
		in.Owner = a.session(r).Username
		err = a.client(r).CreateProduct(r.Context(), in)
	}
	a.afterMutation(w, r, err, "Produto cadastrado com sucesso!", "Erro ao cadastrar produto", "/admin/produtos")
}

// UpdateProductHandler handles POST /admin/produtos/{id}
func (a *App) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	in, err := productInputFromForm(r)
	if err == nil {
		in.ID = mux.Vars(r)["id"]
		err = a.client(r).UpdateProduct(r.Context(), in)
	}
	a.afterMutation(w, r, err, "Produto atualizado com sucesso!", "Erro ao atualizar produto", "/admin/produtos")
}

// ConfirmDeleteProductHandler handles GET /admin/produtos/{id}/excluir
func (a *App) ConfirmDeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	name := id
	if products, err := a.client(r).ListProducts(r.Context(), a.session(r).Username); err == nil {
		if p, ok := findProduct(products, id); ok {
			name = p.Name
		}
	}
	a.renderConfirm(w, r, confirmView{Kind: "produto", Name: name, Action: r.URL.Path, Back: "/admin/produtos"})
}

// DeleteProductHandler handles POST /admin/produtos/{id}/excluir
func (a *App) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	err := a.client(r).DeleteProduct(r.Context(), mux.Vars(r)["id"])
	a.afterMutation(w, r, err, "Produto excluído com sucesso!", "Erro ao excluir produto", "/admin/produtos")
}

// ListCategoriesHandler handles GET /admin/categorias. ?edit={id} prefills the form.
func (a *App) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	var view categoriesView

	categories, err := a.client(r).ListCategories(r.Context())
	if err != nil {
		a.flashError(r, "Erro ao carregar categorias", err)
	}
	view.Categories = categories

	if id := r.URL.Query().Get("edit"); id != "" {
		if c, ok := findCategory(categories, id); ok {
			view.Form = models.CategoryInput{ID: c.ID, Name: c.Name}
			view.Editing = true
		} else {
			a.flash(r, session.LevelWarning, "Categoria não encontrada", "")
		}
	}
	a.render(w, r, http.StatusOK, "categories", "Categorias", view)
}

// CreateCategoryHandler handles POST /admin/categorias
func (a *App) CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	err := a.client(r).CreateCategory(r.Context(), models.CategoryInput{
		Name:  strings.TrimSpace(r.PostFormValue("nome_categoria")),
		Owner: a.session(r).Username,
	})
	a.afterMutation(w, r, err, "Categoria cadastrada com sucesso!", "Erro ao cadastrar categoria", "/admin/categorias")
}

// UpdateCategoryHandler handles POST /admin/categorias/{id}
func (a *App) UpdateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	err := a.client(r).UpdateCategory(r.Context(), models.CategoryInput{
		ID:   mux.Vars(r)["id"],
		Name: strings.TrimSpace(r.PostFormValue("nome_categoria")),
	})
	a.afterMutation(w, r, err, "Categoria atualizada com sucesso!", "Erro ao atualizar categoria", "/admin/categorias")
}

// ConfirmDeleteCategoryHandler handles GET /admin/categorias/{id}/excluir
func (a *App) ConfirmDeleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	name := id
	if categories, err := a.client(r).ListCategories(r.Context()); err == nil {
		if c, ok := findCategory(categories, id); ok {
			name = c.Name
		}
	}
	a.renderConfirm(w, r, confirmView{Kind: "categoria", Name: name, Action: r.URL.Path, Back: "/admin/categorias"})
}

// DeleteCategoryHandler handles POST /admin/categorias/{id}/excluir
func (a *App) DeleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	err := a.client(r).DeleteCategory(r.Context(), mux.Vars(r)["id"])
	a.afterMutation(w, r, err, "Categoria excluída com sucesso!", "Erro ao excluir categoria", "/admin/categorias")
}

// ListSalesHandler handles GET /admin/vendas. ?expand={id} shows the lines of one sale.
func (a *App) ListSalesHandler(w http.ResponseWriter, r *http.Request) {
	sales, err := a.client(r).ListSales(r.Context())
	if err != nil {
		a.flashError(r, "Erro ao carregar vendas", err)
	}

	expand := r.URL.Query().Get("expand")
	view := salesView{Sales: make([]saleRow, len(sales)), Revenue: decimal.Zero}
	for i, s := range sales {
		view.Sales[i] = saleRow{Sale: s, Expanded: expand != "" && s.ID == expand}
		view.Revenue = view.Revenue.Add(s.Total())
	}
	a.render(w, r, http.StatusOK, "sales", "Vendas", view)
}

// ConfirmDeleteSaleHandler handles GET /admin/vendas/{id}/excluir
func (a *App) ConfirmDeleteSaleHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	name := id
	if sales, err := a.client(r).ListSales(r.Context()); err == nil {
		for _, s := range sales {
			if s.ID == id {
				name = s.BuyerName + " (" + s.Date.Display() + ")"
				break
			}
		}
	}
	a.renderConfirm(w, r, confirmView{Kind: "venda", Name: name, Action: r.URL.Path, Back: "/admin/vendas"})
}

// DeleteSaleHandler handles POST /admin/vendas/{id}/excluir
func (a *App) DeleteSaleHandler(w http.ResponseWriter, r *http.Request) {
	err := a.client(r).DeleteSale(r.Context(), mux.Vars(r)["id"])
	a.afterMutation(w, r, err, "Venda excluída com sucesso!", "Erro ao excluir venda", "/admin/vendas")
}

func (a *App) renderConfirm(w http.ResponseWriter, r *http.Request, view confirmView) {
	a.render(w, r, http.StatusOK, "confirm_delete", "Confirmar exclusão", view)
}

// afterMutation toasts the outcome and sends the browser back to the list,
// which refetches from the API
func (a *App) afterMutation(w http.ResponseWriter, r *http.Request, err error, success, failure, back string) {
	if err != nil {
		a.flashError(r, failure, err)
	} else {
		a.flash(r, session.LevelSuccess, success, "")
	}
	redirect(w, r, back)
}

func productInputFromForm(r *http.Request) (models.ProductInput, error) {
	in := models.ProductInput{
		Name:        strings.TrimSpace(r.PostFormValue("nome")),
		Description: strings.TrimSpace(r.PostFormValue("descricao")),
		Category:    strings.TrimSpace(r.PostFormValue("categoria")),
		Image:       strings.TrimSpace(r.PostFormValue("imagem")),
	}

	price, err := models.ParsePrice(r.PostFormValue("preco"))
	if err != nil {
		return in, err
	}
	in.Price = price

	if raw := strings.TrimSpace(r.PostFormValue("quantidade")); raw != "" {
		qty, err := strconv.Atoi(raw)
		if err != nil {
			return in, &models.ValidationError{Field: "quantidade", Reason: "must be a whole number"}
		}
		in.Quantity = qty
	}
	return in, nil
}

func findProduct(products []models.Product, id string) (models.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

func findCategory(categories []models.Category, id string) (models.Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return models.Category{}, false
}
