package botline

import "errors"

var (
	// ErrNilHandler is returned when a registration method receives a nil
	// handler function.
	ErrNilHandler = errors.New("nil handler")

	// ErrCommandExists is returned when a command name is already taken by
	// an earlier registration on the same bot.
	ErrCommandExists = errors.New("command already exists")

	// ErrInvalidCommandName is returned when a command name contains
	// characters outside [a-zA-Z0-9_].
	ErrInvalidCommandName = errors.New("invalid command name")

	// ErrNoStore is returned by inline dispatch when no pagination store
	// was configured. Inline hooks have no local fallback: offsets must be
	// shared by every worker, so a missing store is fatal for that path.
	ErrNoStore = errors.New("no pagination store configured")
)
