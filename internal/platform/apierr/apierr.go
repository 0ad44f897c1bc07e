package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/storyforge-backend/internal/types"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromDomain maps a service error onto an HTTP status and stable error code.
// Unknown errors become a plain 500.
func FromDomain(err error) *Error {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, types.ErrOutOfRange):
		return New(http.StatusBadRequest, "out_of_range", err)
	case errors.Is(err, types.ErrInvalidStyle):
		return New(http.StatusBadRequest, "invalid_style", err)
	case errors.Is(err, types.ErrGenerationFailed):
		return New(http.StatusBadGateway, "generation_failed", err)
	case errors.Is(err, types.ErrRenderFailed):
		return New(http.StatusInternalServerError, "render_failed", err)
	case errors.Is(err, types.ErrStorageUnavailable):
		return New(http.StatusServiceUnavailable, "storage_unavailable", err)
	case errors.Is(err, types.ErrExtractFailed):
		return New(http.StatusBadGateway, "extract_failed", err)
	case errors.Is(err, types.ErrSpeechFailed):
		return New(http.StatusBadGateway, "speech_failed", err)
	case errors.Is(err, types.ErrInvalidInput):
		return New(http.StatusBadRequest, "invalid_input", err)
	default:
		return New(http.StatusInternalServerError, "internal_error", err)
	}
}
