package httpapi

import "testing"

func TestOptionsDefaults_MaxBodyWhenNonPositive(t *testing.T) {
	if got := (Options{MaxBodyBytes: -1}).withDefaults().MaxBodyBytes; got != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", got)
	}
	if got := (Options{}).withDefaults().MaxBodyBytes; got != 1<<20 {
		t.Fatalf("expected default 1MiB on zero, got %d", got)
	}
}

func TestOptionsDefaults_PositiveKept(t *testing.T) {
	o := (Options{MaxBodyBytes: 1234}).withDefaults()
	if o.MaxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", o.MaxBodyBytes)
	}
	if o.BaseContext == nil || o.Logger == nil {
		t.Fatalf("expected base context and logger defaults, got %+v", o)
	}
}
