package auth

import (
	"fmt"
	"ws-chat/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Username string `json:"username" validate:"required,min=3,max=50,alphanumunicode"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ValidateRegister reports any rule violation as errors.ErrInvalidPassword.
func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}
	return nil
}
