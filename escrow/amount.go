package escrow

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	trustwork "github.com/nexora-w/TrustWork"
)

// Amount is an exact, arbitrary-precision integer quantity in the smallest
// currency unit (wei for ether-denominated jobs). The zero value is 0.
// Amounts are immutable; arithmetic returns new values.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for Unmarshal/Scan.
type Amount struct {
	i *big.Int
}

// NewAmount returns an Amount holding n.
func NewAmount(n int64) Amount {
	return Amount{i: big.NewInt(n)}
}

// AmountFromBig copies b into a new Amount.
func AmountFromBig(b *big.Int) Amount {
	if b == nil {
		return Amount{}
	}
	return Amount{i: new(big.Int).Set(b)}
}

// ParseAmount parses a base-10 integer string.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: parse %q", trustwork.ErrInvalidAmount, s)
	}
	return Amount{i: b}, nil
}

// MustParseAmount is like ParseAmount but panics on error.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) big() *big.Int {
	if a.i == nil {
		return new(big.Int)
	}
	return a.i
}

// Sign returns -1, 0 or +1.
func (a Amount) Sign() int { return a.big().Sign() }

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool { return a.Sign() == 0 }

// IsPositive reports whether a > 0.
func (a Amount) IsPositive() bool { return a.Sign() > 0 }

// Cmp compares a and b.
func (a Amount) Cmp(b Amount) int { return a.big().Cmp(b.big()) }

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool { return a.Cmp(b) == 0 }

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{i: new(big.Int).Add(a.big(), b.big())}
}

// Big returns a copy of the underlying integer.
func (a Amount) Big() *big.Int { return new(big.Int).Set(a.big()) }

// String returns the base-10 representation.
func (a Amount) String() string { return a.big().String() }

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON encodes the amount as a decimal string so that values beyond
// 2^53 survive JavaScript clients.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a decimal string or a JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if numErr := json.Unmarshal(data, &n); numErr != nil {
			return fmt.Errorf("escrow: decode amount: %w", err)
		}
		s = n.String()
	}
	return a.UnmarshalText([]byte(s))
}

// Value implements driver.Valuer. Amounts are stored as decimal text so
// every backend keeps full precision.
func (a Amount) Value() (driver.Value, error) { return a.String(), nil }

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		*a = NewAmount(v)
		return nil
	default:
		return fmt.Errorf("escrow: cannot scan %T into Amount", src)
	}
}
