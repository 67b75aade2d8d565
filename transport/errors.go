package transport

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-productwebhook/core"
)

// failure builds the go-errors envelope returned by Post. source may be nil.
func failure(source error, category goerrors.Category, message string, fields map[string]any) error {
	var err *goerrors.Error
	if source == nil {
		err = goerrors.New(message, category)
	} else {
		err = goerrors.Wrap(source, category, message)
	}
	err = err.WithCode(statusFor(category)).WithTextCode(textCodeFor(category))
	if len(fields) > 0 {
		err = err.WithMetadata(fields)
	}
	return err
}

func statusFor(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func textCodeFor(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.ErrorValidation
	case goerrors.CategoryExternal:
		return core.ErrorTransport
	default:
		return core.ErrorInternal
	}
}
