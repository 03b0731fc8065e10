package identity_test

import (
	"testing"

	"github.com/podliner/podliner/internal/identity"
)

func TestHostnameReturnsNonEmptyString(t *testing.T) {
	h := identity.Hostname()
	if h == "" {
		t.Error("Hostname() returned empty string")
	}
}
