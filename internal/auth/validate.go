package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/panelforge/internal/generate"
	"github.com/fpang/panelforge/internal/metrics"
)

// validationModel is the cheapest text model that exercises the same auth
// path as the generation models.
const validationModel = "gemini-3-flash-preview"

// ValidationError reports why an API key failed validation. Class carries the
// pipeline's error taxonomy so callers can give a precise hint: an invalid key
// needs a new key, a quota error just needs patience.
type ValidationError struct {
	Class   generate.Class
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ValidateAPIKey verifies the key with a minimal generation call before any
// panel work starts. Catching a dead key here turns N panels of fallbacks
// into one clear startup error.
func ValidateAPIKey(ctx context.Context, client *genai.Client) error {
	log.Debug().Msg("Validating API key with Gemini API")

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, validationModel, genai.Text("hi"), nil)
	elapsed := time.Since(start)

	result := "success"
	var valErr *ValidationError
	switch {
	case err != nil:
		valErr = classifyValidation(err)
		result = string(valErr.Class)
	case resp == nil || len(resp.Candidates) == 0:
		valErr = &ValidationError{
			Class:   generate.ClassFatal,
			Message: "API returned empty response",
		}
		result = "empty_response"
	}

	metrics.New("Panelforge/Auth").
		Dimension("Result", result).
		DurationMs("ApiKeyValidationMs", elapsed).
		Count("ApiKeyValidationResult", 1).
		Flush()

	if valErr != nil {
		log.Error().Err(valErr).Str("result", result).Msg("API key validation failed")
		return valErr
	}

	log.Info().Dur("duration", elapsed).Msg("API key validated successfully")
	return nil
}

// classifyValidation maps a validation failure onto the pipeline taxonomy,
// with auth-specific handling for credential rejections that the generation
// classifier has no reason to know about.
func classifyValidation(err error) *ValidationError {
	if apiErr, ok := asAPIError(err); ok {
		switch apiErr.Code {
		case 400, 401, 403:
			return &ValidationError{
				Class:   generate.ClassFatal,
				Message: "API key is invalid, expired, or lacks permissions",
				Err:     err,
			}
		}
	}

	switch class := generate.ClassOf(err); class {
	case generate.ClassQuota:
		return &ValidationError{
			Class:   class,
			Message: "API quota exceeded or rate limited - try again later",
			Err:     err,
		}
	case generate.ClassTransient:
		return &ValidationError{
			Class:   class,
			Message: "Gemini API unreachable - check connectivity and retry",
			Err:     err,
		}
	default:
		return &ValidationError{
			Class:   generate.ClassFatal,
			Message: "Failed to validate API key",
			Err:     err,
		}
	}
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
