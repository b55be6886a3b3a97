package handlers

import (
	"errors"
	"net/http"

	pkgerrors "github.com/substationlabs/assetview-backend/internal/pkg/errors"
)

// statusForServiceError maps service sentinels onto HTTP statuses. Anything
// unrecognized reads as a 500 so bugs never masquerade as client mistakes.
func statusForServiceError(err error) (int, string) {
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, pkgerrors.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
