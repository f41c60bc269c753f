package services_test

import (
	"errors"
	"strings"
	"testing"

	"encodeflow/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("connection reset")
	err := services.Wrap(services.ErrTransport, "encodingcom", "submit", "post request", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"encodingcom", "submit", "post request"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestEscalates(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		expect bool
	}{
		{"nil", nil, false},
		{"invalid transition", services.Wrap(services.ErrInvalidTransition, "assets", "apply", "complete from done", nil), true},
		{"malformed response", services.Wrap(services.ErrMalformedProviderResponse, "encodingcom", "submit", "missing MediaID", nil), true},
		{"malformed callback", services.Wrap(services.ErrMalformedCallback, "encoding", "callback", "missing status", nil), true},
		{"transport", services.Wrap(services.ErrTransport, "encodingcom", "submit", "timeout", nil), false},
		{"unresolved", services.Wrap(services.ErrUnresolvedCallback, "encoding", "resolve", "unknown media id", nil), false},
		{"plain", errors.New("other"), false},
	}
	for _, tc := range cases {
		if got := services.Escalates(tc.err); got != tc.expect {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.expect, got)
		}
	}
}

func TestKindLabels(t *testing.T) {
	err := services.Wrap(services.ErrMalformedCallback, "encoding", "callback", "missing status", nil)
	if got := services.Kind(err); got != "malformed_callback" {
		t.Fatalf("unexpected kind %q", got)
	}
	if got := services.Kind(errors.New("x")); got != "unknown" {
		t.Fatalf("unexpected kind %q", got)
	}
}
