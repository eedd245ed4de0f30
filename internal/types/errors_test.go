package types

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeProviderUnavailable, "upstream down", nil)
	want := "provider_unavailable: upstream down"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewAppError(ErrCodeProviderUnavailable, "upstream down", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is must find the wrapped cause")
	}

	var appErr *AppError
	if !errors.As(error(err), &appErr) {
		t.Error("errors.As must match *AppError")
	}
}

func TestAppError_WithDetailsCopies(t *testing.T) {
	orig := NewAppError(ErrCodePersistenceInsert, "insert failed", nil).
		WithDetails(map[string]any{"table": "weather_forecast"})

	derived := orig.WithDetails(map[string]any{"chunk_offset": 168})

	if len(orig.Details) != 1 {
		t.Errorf("original details mutated: %v", orig.Details)
	}
	if derived.Details["table"] != "weather_forecast" || derived.Details["chunk_offset"] != 168 {
		t.Errorf("derived details incomplete: %v", derived.Details)
	}
	if derived.Code != orig.Code || derived.Message != orig.Message {
		t.Error("WithDetails must preserve code and message")
	}
}

func TestErrorCode_IsFatal(t *testing.T) {
	fatal := []ErrorCode{ErrCodeConfigurationMissing, ErrCodeInternalUnexpected}
	for _, c := range fatal {
		if !c.IsFatal() {
			t.Errorf("%s should be fatal", c)
		}
	}

	recoverable := []ErrorCode{
		ErrCodeProviderUnavailable, ErrCodeProviderMalformed, ErrCodeProviderRateLimited,
		ErrCodePersistenceDelete, ErrCodePersistenceInsert, ErrCodePersistencePartial,
	}
	for _, c := range recoverable {
		if c.IsFatal() {
			t.Errorf("%s should be recoverable", c)
		}
	}
}
