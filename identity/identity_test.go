package identity_test

import (
	"context"
	"errors"
	"testing"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/identity"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    identity.Address
		wantErr bool
	}{
		{"lowercase", "0x52908400098527886e0f7030069857d2e4169ee7", "0x52908400098527886e0f7030069857d2e4169ee7", false},
		{"checksum casing", "0x52908400098527886E0F7030069857D2E4169EE7", "0x52908400098527886e0f7030069857d2e4169ee7", false},
		{"surrounding space", "  0x8617e340b3d01fa5f11f306f4090fd50e238070d ", "0x8617e340b3d01fa5f11f306f4090fd50e238070d", false},
		{"missing prefix", "52908400098527886e0f7030069857d2e4169ee7", "", true},
		{"too short", "0x1234", "", true},
		{"non hex", "0xZZ908400098527886e0f7030069857d2e4169ee7", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := identity.Parse(tt.in)
			if tt.wantErr {
				if !errors.Is(err, trustwork.ErrInvalidAddress) {
					t.Fatalf("expected ErrInvalidAddress, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddress_Equal(t *testing.T) {
	a := identity.Address("0xabcdef0000000000000000000000000000000001")
	b := identity.Address("0xABCDEF0000000000000000000000000000000001")
	if !a.Equal(b) {
		t.Error("expected case-insensitive equality")
	}
	if a.Equal(identity.Zero) {
		t.Error("address must not equal zero")
	}
}

func TestCallerContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := identity.CallerFrom(ctx); ok {
		t.Fatal("expected no caller on empty context")
	}
	if _, err := identity.RequireCaller(ctx); !errors.Is(err, trustwork.ErrMissingCaller) {
		t.Fatalf("expected ErrMissingCaller, got %v", err)
	}

	a := identity.MustParse("0x52908400098527886e0f7030069857d2e4169ee7")
	ctx = identity.WithCaller(ctx, a)
	got, err := identity.RequireCaller(ctx)
	if err != nil {
		t.Fatalf("RequireCaller: %v", err)
	}
	if got != a {
		t.Errorf("got %q, want %q", got, a)
	}

	mixed := identity.WithCaller(context.Background(), identity.Address("0x52908400098527886E0F7030069857D2E4169EE7"))
	if got, err := identity.RequireCaller(mixed); err != nil || got != a {
		t.Errorf("RequireCaller(mixed case) = %q, %v; want %q", got, err, a)
	}

	bogus := identity.WithCaller(context.Background(), identity.Address("alice"))
	if _, err := identity.RequireCaller(bogus); !errors.Is(err, trustwork.ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress for malformed caller, got %v", err)
	}
}
