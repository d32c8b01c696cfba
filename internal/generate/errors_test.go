package generate

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassOfPreClassified(t *testing.T) {
	err := NewError(ClassQuota, errors.New("billing account suspended"))
	if got := ClassOf(err); got != ClassQuota {
		t.Errorf("ClassOf(pre-classified) = %q, want %q", got, ClassQuota)
	}

	// Wrapping must not lose the classification.
	wrapped := fmt.Errorf("generate image: %w", err)
	if got := ClassOf(wrapped); got != ClassQuota {
		t.Errorf("ClassOf(wrapped) = %q, want %q", got, ClassQuota)
	}
}

func TestClassOfStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   Class
	}{
		{429, ClassQuota},
		{402, ClassQuota},
		{500, ClassTransient},
		{503, ClassTransient},
		{408, ClassTransient},
		{400, ClassFatal},
		{404, ClassFatal},
	}
	for _, tt := range tests {
		err := StatusError(tt.status, errors.New("api failure"))
		if got := ClassOf(err); got != tt.want {
			t.Errorf("ClassOf(status %d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestClassOfKeywords(t *testing.T) {
	tests := []struct {
		msg  string
		want Class
	}{
		{"Quota exceeded for model", ClassQuota},
		{"RESOURCE_EXHAUSTED: too many requests", ClassQuota},
		{"model is overloaded, try again", ClassTransient},
		{"service unavailable", ClassTransient},
		{"invalid prompt structure", ClassFatal},
	}
	for _, tt := range tests {
		if got := ClassOf(errors.New(tt.msg)); got != tt.want {
			t.Errorf("ClassOf(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestClassOfKeywordsMatchInnermost(t *testing.T) {
	// Outer wrapping text must not shadow the innermost message.
	err := fmt.Errorf("panel 3: %w", fmt.Errorf("call vendor: %w", errors.New("quota exceeded")))
	if got := ClassOf(err); got != ClassQuota {
		t.Errorf("ClassOf(nested quota) = %q, want %q", got, ClassQuota)
	}
}

func TestClassOfContextErrors(t *testing.T) {
	if got := ClassOf(context.DeadlineExceeded); got != ClassDeadline {
		t.Errorf("ClassOf(DeadlineExceeded) = %q, want %q", got, ClassDeadline)
	}
	if got := ClassOf(fmt.Errorf("generate: %w", context.Canceled)); got != ClassDeadline {
		t.Errorf("ClassOf(Canceled) = %q, want %q", got, ClassDeadline)
	}
}

func TestClassRetryable(t *testing.T) {
	if !ClassTransient.Retryable() {
		t.Error("ClassTransient.Retryable() = false, want true")
	}
	for _, c := range []Class{ClassQuota, ClassFatal, ClassDeadline} {
		if c.Retryable() {
			t.Errorf("%s.Retryable() = true, want false", c)
		}
	}
}

func TestNotAttemptedIsDeadline(t *testing.T) {
	if got := ClassOf(ErrNotAttempted); got != ClassDeadline {
		t.Errorf("ClassOf(ErrNotAttempted) = %q, want %q", got, ClassDeadline)
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range AllKinds() {
		if !k.Valid() {
			t.Errorf("Kind %q reported invalid", k)
		}
	}
	if Kind("video").Valid() {
		t.Error(`Kind("video").Valid() = true, want false`)
	}
}
