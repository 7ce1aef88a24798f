package common

import (
	"errors"
	"testing"
)

type pauseSet map[string]bool

func (p pauseSet) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	view := pauseSet{"staking": true}
	if err := Guard(view, "staking"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	if err := Guard(view, "other"); err != nil {
		t.Fatalf("unexpected error for unpaused module: %v", err)
	}
	if err := Guard(nil, "staking"); err != nil {
		t.Fatalf("nil view must not block: %v", err)
	}
	if err := Guard(view, ""); err != nil {
		t.Fatalf("empty module must not block: %v", err)
	}
}
