// Package errors provides coded domain errors for the gallery service.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Poster validation errors
	CodePosterIDEmpty             Code = "POSTER_ID_EMPTY"
	CodePosterSlugEmpty           Code = "POSTER_SLUG_EMPTY"
	CodePosterTitleEmpty          Code = "POSTER_TITLE_EMPTY"
	CodePosterPreviewImageEmpty   Code = "POSTER_PREVIEW_IMAGE_EMPTY"
	CodePosterPanelImageMissing   Code = "POSTER_PANEL_IMAGE_MISSING"
	CodePosterInvalidAvailability Code = "POSTER_INVALID_AVAILABILITY"
	CodePosterInvalidPrice        Code = "POSTER_INVALID_PRICE"
	CodePosterDuplicateSlug       Code = "POSTER_DUPLICATE_SLUG"

	// Storage errors
	CodeNotFound         Code = "NOT_FOUND"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodeUnsupported      Code = "UNSUPPORTED_OPERATION"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodePosterIDEmpty,
		CodePosterSlugEmpty,
		CodePosterTitleEmpty,
		CodePosterPreviewImageEmpty,
		CodePosterPanelImageMissing,
		CodePosterInvalidAvailability,
		CodePosterInvalidPrice:
		return http.StatusBadRequest

	case CodeNotFound:
		return http.StatusNotFound

	case CodeAlreadyExists, CodePosterDuplicateSlug:
		return http.StatusConflict

	case CodeUnsupported:
		return http.StatusNotImplemented

	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
