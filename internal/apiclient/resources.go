package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/SigNoz/storefront-go-app/internal/models"
)

// Login authenticates and returns the bearer token
func (c *Client) Login(ctx context.Context, creds models.Credentials) (string, error) {
	var resp models.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/app/login", creds, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", ErrNoToken
	}
	return resp.Token, nil
}

// Register creates an account and returns its id
func (c *Client) Register(ctx context.Context, reg models.Registration) (string, error) {
	var resp models.RegistrationResponse
	if err := c.do(ctx, http.MethodPost, "/app/registrar", reg, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", ErrNoAccountID
	}
	return resp.ID, nil
}

// ListProducts returns the catalog of a store owner
func (c *Client) ListProducts(ctx context.Context, owner string) ([]models.Product, error) {
	if owner == "" {
		return nil, fmt.Errorf("list products: owner is required")
	}
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "/app/produtos/"+url.PathEscape(owner), nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// CreateProduct creates a product
func (c *Client) CreateProduct(ctx context.Context, in models.ProductInput) error {
	if err := in.ValidateCreate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/app/produtos", in, nil)
}

// UpdateProduct updates a product
func (c *Client) UpdateProduct(ctx context.Context, in models.ProductInput) error {
	if err := in.ValidateUpdate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/app/produtos", in, nil)
}

// DeleteProduct deletes a product
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.delete(ctx, "/app/produtos", id)
}

// ListCategories returns every category
func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.do(ctx, http.MethodGet, "/app/categorias", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateCategory creates a category
func (c *Client) CreateCategory(ctx context.Context, in models.CategoryInput) error {
	if err := in.ValidateCreate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/app/categorias", in, nil)
}

// UpdateCategory renames a category
func (c *Client) UpdateCategory(ctx context.Context, in models.CategoryInput) error {
	if err := in.ValidateUpdate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/app/categorias", in, nil)
}

// DeleteCategory deletes a category
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.delete(ctx, "/app/categorias", id)
}

// ListSales returns every recorded sale
func (c *Client) ListSales(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	if err := c.do(ctx, http.MethodGet, "/app/venda", nil, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// SubmitOrder records a checkout as a sale
func (c *Client) SubmitOrder(ctx context.Context, order models.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/app/venda", order, nil)
}

// DeleteSale deletes a sale
func (c *Client) DeleteSale(ctx context.Context, id string) error {
	return c.delete(ctx, "/app/venda", id)
}

func (c *Client) delete(ctx context.Context, path, id string) error {
	req := models.DeleteRequest{ID: id}
	if err := req.Validate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path, req, nil)
}
