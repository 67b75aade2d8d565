package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorConfiguration = "PRODUCTWEBHOOK_CONFIGURATION"
	ErrorValidation    = "PRODUCTWEBHOOK_VALIDATION"
	ErrorSerialization = "PRODUCTWEBHOOK_SERIALIZATION"
	ErrorTransport     = "PRODUCTWEBHOOK_TRANSPORT"
	ErrorHTTP          = "PRODUCTWEBHOOK_HTTP"
	ErrorQueueHandoff  = "PRODUCTWEBHOOK_QUEUE_HANDOFF"
	ErrorInternal      = "PRODUCTWEBHOOK_INTERNAL"
)

func newValidationError(reason ViolationReason, message string) *goerrors.Error {
	if strings.TrimSpace(message) == "" {
		message = "core: webhook url rejected"
	}
	return goerrors.New(message, goerrors.CategoryValidation).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorValidation).
		WithMetadata(map[string]any{"reason": string(reason)})
}

// NewConfigurationError reports missing or unusable configuration.
func NewConfigurationError(message string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorConfiguration)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func NewSerializationError(source error, metadata map[string]any) *goerrors.Error {
	return wrapWithCode(source, goerrors.CategoryBadInput, "core: serialize product data", http.StatusUnprocessableEntity, ErrorSerialization, metadata)
}

func NewTransportError(source error, metadata map[string]any) *goerrors.Error {
	return wrapWithCode(source, goerrors.CategoryExternal, "core: webhook transport failed", http.StatusBadGateway, ErrorTransport, metadata)
}

func NewHTTPError(statusCode int, metadata map[string]any) *goerrors.Error {
	err := goerrors.New("core: webhook endpoint returned non-success status", goerrors.CategoryExternal).
		WithCode(statusCode).
		WithTextCode(ErrorHTTP)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func NewQueueHandoffError(source error, metadata map[string]any) *goerrors.Error {
	return wrapWithCode(source, goerrors.CategoryExternal, "core: queue handoff failed", http.StatusServiceUnavailable, ErrorQueueHandoff, metadata)
}

func NewInternalError(message string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorInternal).
		WithSeverity(goerrors.SeverityCritical)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func wrapWithCode(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	var err *goerrors.Error
	if source == nil {
		err = goerrors.New(message, category)
	} else {
		err = goerrors.Wrap(source, category, message)
	}
	err.WithCode(code).WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// TextCode returns the text code of a go-errors error, or "".
func TextCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}

func mapBuildError(err error) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return NewConfigurationError(err.Error(), nil)
}
