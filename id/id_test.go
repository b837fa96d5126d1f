package id_test

import (
	"strings"
	"testing"

	"github.com/nexora-w/TrustWork/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"TransferID", id.NewTransferID, "xfer_"},
		{"EventID", id.NewEventID, "evt_"},
		{"SubscriberID", id.NewSubscriberID, "sub_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"TransferID", id.NewTransferID, id.ParseTransferID},
		{"EventID", id.NewEventID, id.ParseEventID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestParseWithPrefix_Mismatch(t *testing.T) {
	evt := id.NewEventID()
	if _, err := id.ParseTransferID(evt.String()); err == nil {
		t.Fatal("expected error for mismatched prefix")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero value should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	v, err := i.Value()
	if err != nil || v != nil {
		t.Errorf("expected nil value, got %v (%v)", v, err)
	}
}

func TestScan(t *testing.T) {
	original := id.NewTransferID()

	var fromString id.ID
	if err := fromString.Scan(original.String()); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if fromString.String() != original.String() {
		t.Errorf("scan string mismatch: %q", fromString.String())
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil || !fromNil.IsNil() {
		t.Errorf("scan nil: %v, nil=%v", err, fromNil.IsNil())
	}

	var bad id.ID
	if err := bad.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestParseJobID(t *testing.T) {
	tests := []struct {
		in      string
		want    id.JobID
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", id.NoJob, true},
		{"-3", id.NoJob, true},
		{"abc", id.NoJob, true},
		{"", id.NoJob, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := id.ParseJobID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestJobID_Valid(t *testing.T) {
	if id.NoJob.Valid() {
		t.Error("NoJob must not be valid")
	}
	if !id.JobID(7).Valid() {
		t.Error("7 must be valid")
	}
	if id.JobID(7).String() != "7" {
		t.Errorf("String() = %q", id.JobID(7).String())
	}
}
