package common

import (
	"errors"
	"fmt"
)

// ErrModulePaused is wrapped by Guard when a module refuses work.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the pause switch of one or more modules.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails when view reports module as paused. A nil view or an empty
// module name never blocks.
func Guard(view PauseView, module string) error {
	if view == nil || module == "" {
		return nil
	}
	if view.IsPaused(module) {
		return fmt.Errorf("%s: %w", module, ErrModulePaused)
	}
	return nil
}
