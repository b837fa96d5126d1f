package trustwork_test

import (
	"errors"
	"fmt"
	"testing"

	trustwork "github.com/nexora-w/TrustWork"
)

func TestRejected(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unauthorized", trustwork.ErrUnauthorized, true},
		{"wrapped transition", fmt.Errorf("accept job 3: %w", trustwork.ErrInvalidTransition), true},
		{"not found", trustwork.ErrJobNotFound, true},
		{"nothing held", trustwork.ErrNothingHeld, false},
		{"store closed", trustwork.ErrStoreClosed, false},
		{"driver error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trustwork.Rejected(tt.err); got != tt.want {
				t.Errorf("Rejected(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
