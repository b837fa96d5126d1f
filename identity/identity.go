// Package identity defines account addresses and carries the authenticated
// caller through context.Context.
//
// Authentication itself (wallet signature verification, sessions) is an
// external collaborator: whatever verifies a request attaches the caller
// with WithCaller, and the ledger reads it back with CallerFrom.
package identity

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	trustwork "github.com/nexora-w/TrustWork"
)

// addressHexLen is the number of hex digits in an account address.
const addressHexLen = 40

// Address is a 20-byte account address in canonical lowercase
// "0x"-prefixed hex form. The zero value is the empty address.
type Address string

// Zero is the empty address. It never identifies a party.
const Zero Address = ""

// Parse validates s as "0x" followed by 40 hex digits and returns its
// canonical form. Mixed (checksum) casing is accepted.
func Parse(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if len(s) != 2+addressHexLen || !(strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		return Zero, fmt.Errorf("%w: %q", trustwork.ErrInvalidAddress, s)
	}
	digits := s[2:]
	if _, err := hex.DecodeString(digits); err != nil {
		return Zero, fmt.Errorf("%w: %q", trustwork.ErrInvalidAddress, s)
	}
	return Address("0x" + strings.ToLower(digits)), nil
}

// MustParse is like Parse but panics on error. Use for hardcoded values.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the canonical form.
func (a Address) String() string { return string(a) }

// IsZero reports whether a is the empty address.
func (a Address) IsZero() bool { return a == Zero }

// Equal compares two addresses ignoring hex casing.
func (a Address) Equal(b Address) bool {
	return strings.EqualFold(string(a), string(b))
}

// ──────────────────────────────────────────────────
// Caller context
// ──────────────────────────────────────────────────

type callerKey struct{}

// WithCaller attaches the authenticated caller to ctx.
func WithCaller(ctx context.Context, caller Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller attached to ctx, if any.
func CallerFrom(ctx context.Context) (Address, bool) {
	a, ok := ctx.Value(callerKey{}).(Address)
	if !ok || a.IsZero() {
		return Zero, false
	}
	return a, true
}

// RequireCaller returns the canonical form of the caller attached to ctx.
// It fails with ErrMissingCaller when there is none and ErrInvalidAddress
// when the attached value is not an address.
func RequireCaller(ctx context.Context) (Address, error) {
	a, ok := CallerFrom(ctx)
	if !ok {
		return Zero, trustwork.ErrMissingCaller
	}
	canon, err := Parse(a.String())
	if err != nil {
		return Zero, fmt.Errorf("caller: %w", err)
	}
	return canon, nil
}
