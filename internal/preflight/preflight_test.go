package preflight_test

import (
	"errors"
	"testing"

	"cliplift/internal/preflight"
	"cliplift/internal/services"
	"cliplift/internal/testsupport"
)

func TestCheckReportsMissingBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	t.Setenv("PATH", t.TempDir())

	err := preflight.Check(cfg)
	if err == nil {
		t.Fatal("expected failure with empty PATH")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
