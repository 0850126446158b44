package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// CustomerConfig holds one tenant's registry credentials and DOI prefix.
//
// Invariants:
//   - A config is "fully configured" only when all four fields are present
//     and non-blank and CustomerID is a URI
//   - A config that is not fully configured never authenticates a request
type CustomerConfig struct {
	CustomerID string `json:"customerId" validate:"notblank,uri"`
	Prefix     string `json:"customerDoiPrefix" validate:"notblank,excludes=/"`
	Username   string `json:"dataCiteMdsClientUsername" validate:"notblank"`
	Password   string `json:"dataCiteMdsClientPassword" validate:"notblank"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// Validate returns the first missing or malformed field.
func (c CustomerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("customer config %q: %w", c.CustomerID, err)
	}
	return nil
}

// IsFullyConfigured reports whether c may be used to authenticate.
func (c CustomerConfig) IsFullyConfigured() bool {
	return c.Validate() == nil
}

// String never includes the password.
func (c CustomerConfig) String() string {
	return fmt.Sprintf("CustomerConfig{CustomerID:%s Prefix:%s Username:%s Password:***}", c.CustomerID, c.Prefix, c.Username)
}

// GoString keeps %#v from leaking the password.
func (c CustomerConfig) GoString() string {
	return c.String()
}
