package config

import (
	"errors"
	"testing"

	"github.com/smpsim/coresim/internal/simerr"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
}

func TestInvalidCores(t *testing.T) {
	c := Default()
	c.Cores = 0
	if err := c.Validate(); !errors.Is(err, simerr.ErrConfig) {
		t.Fatalf("Validate() = %v, want ErrConfig", err)
	}
}

func TestInvalidQuantumWhenPreemptible(t *testing.T) {
	c := Default()
	c.Quantum = 0
	if err := c.Validate(); !errors.Is(err, simerr.ErrConfig) {
		t.Fatalf("Validate() = %v, want ErrConfig", err)
	}
}

func TestZeroQuantumAllowedWhenNonPreemptive(t *testing.T) {
	c := Default()
	c.Quantum = 0
	c.NonPreemptive = true
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestUnknownPolicy(t *testing.T) {
	c := Default()
	c.Policy = "made-up"
	if err := c.Validate(); !errors.Is(err, simerr.ErrConfig) {
		t.Fatalf("Validate() = %v, want ErrConfig", err)
	}
}
