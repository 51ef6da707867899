package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrValidation matches every *ValidationError
var ErrValidation = errors.New("validation failed")

// ValidationError reports a missing or invalid required field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for any validation error
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

// Credentials is the login request body
type Credentials struct {
	Username string `json:"usuario"`
	Password string `json:"senha"`
}

// Validate checks that both fields are filled in
func (c Credentials) Validate() error {
	return errors.Join(required("usuario", c.Username), required("senha", c.Password))
}

// LoginResponse is returned by POST /app/login
type LoginResponse struct {
	Token string `json:"token"`
}

// Registration is the account creation request body
type Registration struct {
	Username string `json:"usuario"`
	Password string `json:"senha"`
	Confirm  string `json:"confirma"`
}

// Validate checks required fields and that the passwords match
func (r Registration) Validate() error {
	if err := errors.Join(
		required("usuario", r.Username),
		required("senha", r.Password),
		required("confirma", r.Confirm),
	); err != nil {
		return err
	}
	if r.Password != r.Confirm {
		return &ValidationError{Field: "confirma", Reason: "passwords do not match"}
	}
	return nil
}

// RegistrationResponse is returned by POST /app/registrar
type RegistrationResponse struct {
	ID string `json:"id"`
}

// ProductInput is the create/update body for /app/produtos
type ProductInput struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"nome"`
	Description string          `json:"descricao"`
	Price       decimal.Decimal `json:"preco"`
	Quantity    int             `json:"quantidade"`
	Category    string          `json:"categoria"`
	Image       string          `json:"imagem"`
	Owner       string          `json:"usuario,omitempty"`
}

// ProductInputFrom prefills an update form from an existing product
func ProductInputFrom(p Product) ProductInput {
	return ProductInput{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Category:    p.Category,
		Image:       p.Image,
		Owner:       p.Owner,
	}
}

// Validate checks the fields shared by create and update
func (p ProductInput) Validate() error {
	errs := []error{
		required("nome", p.Name),
		required("categoria", p.Category),
		required("descricao", p.Description),
		required("imagem", p.Image),
	}
	if p.Price.IsNegative() {
		errs = append(errs, &ValidationError{Field: "preco", Reason: "must not be negative"})
	}
	if p.Quantity < 0 {
		errs = append(errs, &ValidationError{Field: "quantidade", Reason: "must not be negative"})
	}
	return errors.Join(errs...)
}

// ValidateCreate also requires the owner and forbids an id
func (p ProductInput) ValidateCreate() error {
	if p.ID != "" {
		return &ValidationError{Field: "id", Reason: "must be empty on create"}
	}
	return errors.Join(p.Validate(), required("usuario", p.Owner))
}

// ValidateUpdate also requires the id
func (p ProductInput) ValidateUpdate() error {
	return errors.Join(required("id", p.ID), p.Validate())
}

// CategoryInput is the create/update body for /app/categorias
type CategoryInput struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"nome_categoria"`
	Owner string `json:"usuario,omitempty"`
}

// ValidateCreate requires a name and owner
func (c CategoryInput) ValidateCreate() error {
	if c.ID != "" {
		return &ValidationError{Field: "id", Reason: "must be empty on create"}
	}
	return errors.Join(required("nome_categoria", c.Name), required("usuario", c.Owner))
}

// ValidateUpdate requires an id and name
func (c CategoryInput) ValidateUpdate() error {
	return errors.Join(required("id", c.ID), required("nome_categoria", c.Name))
}

// DeleteRequest is the body of every DELETE call
type DeleteRequest struct {
	ID string `json:"id"`
}

// Validate requires the id
func (d DeleteRequest) Validate() error {
	return required("id", d.ID)
}

// Validate checks that an order can be submitted
func (o Order) Validate() error {
	errs := []error{required("nomeCliente", o.BuyerName), required("usuario", o.Owner)}
	if !o.PaymentMethod.Valid() {
		errs = append(errs, &ValidationError{Field: "metodoPagamento", Reason: "is required"})
	}
	if len(o.Lines) == 0 {
		errs = append(errs, &ValidationError{Field: "produtos", Reason: "must not be empty"})
	}
	for i, l := range o.Lines {
		if l.Quantity <= 0 {
			errs = append(errs, &ValidationError{Field: fmt.Sprintf("produtos[%d].quantidade", i), Reason: "must be positive"})
		}
	}
	return errors.Join(errs...)
}
