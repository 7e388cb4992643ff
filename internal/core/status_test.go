package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfPerFamily(t *testing.T) {
	tests := []struct {
		family Family
		status int
		want   Kind
	}{
		{FamilyLogin, 1, KindRequestError},
		{FamilyLogin, 2, KindInvalidCredentials},
		{FamilyRegister, 2, KindUserAlreadyExists},
		{FamilyResource, 1, KindNeedsAuthentication},
		{FamilyResource, 2, KindRequestError},
		{FamilyMessageSend, 3, KindCreationError},
		{FamilyResource, 42, KindRequestError},
	}

	for _, tt := range tests {
		if got := KindOf(tt.family, tt.status); got != tt.want {
			t.Errorf("KindOf(%v, %d) = %s, want %s", tt.family, tt.status, got, tt.want)
		}
	}
}

func TestStatusOfRoundTrips(t *testing.T) {
	if got := StatusOf(FamilyMessageSend, KindCreationError); got != 3 {
		t.Fatalf("expected creation error status 3, got %d", got)
	}
	if got := StatusOf(FamilyLogin, KindRequestError); got != 1 {
		t.Fatalf("expected login request error status 1, got %d", got)
	}
	// Resource endpoints have no creation error, fall back to request error.
	if got := StatusOf(FamilyResource, KindCreationError); got != 2 {
		t.Fatalf("expected fallback status 2, got %d", got)
	}
}

func TestFailureMatchesSentinels(t *testing.T) {
	var err error = NewFailure("fetch channels", FamilyResource, 1, "missing token")
	wrapped := fmt.Errorf("load: %w", err)

	if !errors.Is(wrapped, ErrNeedsAuthentication) {
		t.Fatalf("expected wrapped failure to match ErrNeedsAuthentication")
	}
	if errors.Is(wrapped, ErrRequestError) {
		t.Fatalf("did not expect failure to match ErrRequestError")
	}

	f, ok := AsFailure(wrapped)
	if !ok || f.Status != 1 || f.Message != "missing token" {
		t.Fatalf("unexpected failure: %+v", f)
	}
}

func TestRequestFailureUsesGenericBranch(t *testing.T) {
	f := RequestFailure("login", FamilyLogin, errors.New("connection refused"))
	if f.Kind != KindRequestError || f.Status != 1 {
		t.Fatalf("unexpected failure: %+v", f)
	}
	if !errors.Is(f, ErrRequestError) {
		t.Fatalf("expected request failure to match ErrRequestError")
	}
}
