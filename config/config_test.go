package config

import (
	"strings"
	"testing"
)

func TestValidateRequiresAtLeastOneEndpoint(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an empty endpoint list")
	}
}

func TestValidateRejectsBlankEndpoint(t *testing.T) {
	cfg := Config{Endpoints: []string{"10.0.0.1:10800", "   "}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a blank endpoint string")
	}
}

func TestValidateRejectsNegativeConnectionsPerEndpoint(t *testing.T) {
	cfg := Config{Endpoints: []string{"10.0.0.1:10800"}, ConnectionsPerEndpoint: -1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a negative ConnectionsPerEndpoint")
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := Config{Endpoints: []string{"10.0.0.1:10800", "10.0.0.2:10800"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConnectionsPerEndpointDefaultsToOne(t *testing.T) {
	cfg := Config{Endpoints: []string{"10.0.0.1:10800"}}
	if got := connectionsPerEndpoint(&cfg); got != 1 {
		t.Fatalf("expected default of 1, got %d", got)
	}

	cfg.ConnectionsPerEndpoint = 4
	if got := connectionsPerEndpoint(&cfg); got != 4 {
		t.Fatalf("expected explicit value of 4, got %d", got)
	}
}

func TestStringIncludesEndpointsAndFlags(t *testing.T) {
	cfg := Config{
		Endpoints:          []string{"10.0.0.1:10800", "10.0.0.2:10800"},
		PartitionAwareness: true,
		TimeoutSecond:      5,
	}

	out := cfg.String()
	for _, want := range []string{"10.0.0.1:10800", "10.0.0.2:10800", "5 sec", "true"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected String() output to contain %q, got:\n%s", want, out)
		}
	}
}
