package access_test

import (
	"testing"

	"github.com/nexora-w/TrustWork/access"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

func TestRoleOf(t *testing.T) {
	client := identity.MustParse("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	freelancer := identity.MustParse("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	j := &job.Job{Client: client, Freelancer: freelancer}

	tests := []struct {
		name   string
		caller identity.Address
		want   access.Role
	}{
		{"client", client, access.RoleClient},
		{"client checksum casing", identity.Address("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"), access.RoleClient},
		{"freelancer", freelancer, access.RoleFreelancer},
		{"stranger", identity.MustParse("0xcccccccccccccccccccccccccccccccccccccccc"), access.RoleNone},
		{"zero", identity.Zero, access.RoleNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := access.RoleOf(j, tt.caller); got != tt.want {
				t.Errorf("RoleOf = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSet_Allows(t *testing.T) {
	s := access.Set{access.RoleClient, access.RoleFreelancer}
	if !s.Allows(access.RoleClient) || !s.Allows(access.RoleFreelancer) {
		t.Error("expected parties to be allowed")
	}
	if s.Allows(access.RoleNone) {
		t.Error("RoleNone must not be allowed")
	}
}
