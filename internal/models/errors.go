package club

import "errors"

// Ошибки бизнес-логики, проверяются через errors.Is
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInsufficientCredit     = errors.New("insufficient credit")
	ErrAccountInactive        = errors.New("account is inactive")
	ErrInvalidAdjustment      = errors.New("invalid adjustment")
	ErrInvalidDuePolicy       = errors.New("invalid due date policy")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrCycleAlreadyRun        = errors.New("cycle already run")
)
