package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"rate limited", &Error{Status: 429}, true},
		{"server error", &Error{Status: 503}, true},
		{"marked temporary", &Error{Temporary: true}, true},
		{"auth failure", &Error{Status: 401}, false},
		{"bad request", &Error{Status: 400}, false},
		{"plain error", errors.New("boom"), false},
		{"wrapped transient", fmt.Errorf("stage flights: %w", &Error{Status: 500}), true},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Client: "openai", Err: errors.New("no choices")}
	if err.Error() != "openai: no choices" {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	err = &Error{Client: "openai", Status: 401}
	if err.Error() != "openai: client error (status=401)" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &Error{Err: inner}
	if !errors.Is(err, inner) {
		t.Fatal("expected errors.Is to find inner error")
	}
}
