package types

import "errors"

// Error taxonomy surfaced by the storybook and audiobook services. Handlers
// map these to HTTP statuses with errors.Is; services wrap them with %w so
// the original cause stays visible in logs.
var (
	ErrNotFound           = errors.New("session not found")
	ErrOutOfRange         = errors.New("scene index out of range")
	ErrInvalidStyle       = errors.New("invalid style")
	ErrGenerationFailed   = errors.New("image generation failed")
	ErrRenderFailed       = errors.New("pdf render failed")
	ErrStorageUnavailable = errors.New("session storage unavailable")
	ErrExtractFailed      = errors.New("text extraction failed")
	ErrSpeechFailed       = errors.New("speech synthesis failed")
	ErrInvalidInput       = errors.New("invalid input")
)
