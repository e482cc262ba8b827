package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("filemode", func(fl validator.FieldLevel) bool {
		_, err := parseFileMode(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}

	return v
}

// Validate checks field constraints and the PVE credential rule.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			messages := make([]string, 0, len(validationErrors))
			for _, fieldErr := range validationErrors {
				messages = append(messages, fieldMessage(fieldErr))
			}
			return &ConfigError{Message: "configuration error", Err: errors.New(strings.Join(messages, "; "))}
		}
		return &ConfigError{Message: "configuration error", Err: err}
	}

	if err := c.validateCredentials(); err != nil {
		return &ConfigError{Message: "configuration error", Err: err}
	}

	return nil
}

func fieldMessage(fieldErr validator.FieldError) string {
	// Namespace is "Config.pve.auth_timeout"; drop the root type.
	field := fieldErr.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}

	if fieldErr.Param() != "" {
		return fmt.Sprintf("%s failed on '%s=%s'", field, fieldErr.Tag(), fieldErr.Param())
	}
	return fmt.Sprintf("%s failed on '%s'", field, fieldErr.Tag())
}

// validateCredentials requires a server, a user and exactly one credential
// form. With Consul enabled endpoints and token come from Consul.
func (c *Config) validateCredentials() error {
	if c.Consul.Enabled {
		return nil
	}

	if strings.TrimSpace(c.PVE.Server) == "" {
		return errors.New("pve.server is required")
	}

	if c.PVE.User == "" {
		return errors.New("pve.user is required")
	}

	hasPassword := c.PVE.Password != ""
	hasToken := c.PVE.TokenName != "" || c.PVE.TokenValue != ""

	switch {
	case hasPassword && hasToken:
		return errors.New("pve.password and pve.token_name/pve.token_value are mutually exclusive")
	case hasToken && (c.PVE.TokenName == "" || c.PVE.TokenValue == ""):
		return errors.New("pve.token_name and pve.token_value must be set together")
	case !hasPassword && !hasToken:
		return errors.New("either pve.password or pve.token_name and pve.token_value is required")
	}

	return nil
}
