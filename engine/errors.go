package engine

import (
	"errors"
	"fmt"
)

// Expected business outcomes. Adapters translate these into chat text or
// HTTP responses; anything else is a store fault and renders generically.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrTaskCompleted      = errors.New("task already completed")
	ErrTaskCompletedToday = errors.New("daily task already completed today")
)

// CooldownError rejects a mine attempt made before the cooldown elapsed.
type CooldownError struct {
	SecondsRemaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("you can mine again in %d seconds", e.SecondsRemaining)
}
