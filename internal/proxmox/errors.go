package proxmox

import (
	"errors"
	"fmt"
)

// APIError is returned for every failed API request. Status is zero when the
// request never got an HTTP response.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("API error: %s", e.Message)
	}

	return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func newAPIError(err error) *APIError {
	return &APIError{
		Message: err.Error(),
		Err:     err,
	}
}

// WrapAPIError returns err unchanged when it already carries an *APIError,
// otherwise it wraps err in one.
func WrapAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}

	return newAPIError(err)
}

type AuthError struct {
	Server string
	User   string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication against %s as %s failed: %v", e.Server, e.User, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
