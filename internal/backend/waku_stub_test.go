//go:build !real_waku

package backend

import (
	"errors"
	"testing"
)

func TestBuildClientsWakuWithoutBuildTag(t *testing.T) {
	_, err := BuildClients(Config{Transport: TransportGoWaku})
	if !errors.Is(err, ErrNotEnabled) {
		t.Fatalf("expected ErrNotEnabled, got %v", err)
	}
}
