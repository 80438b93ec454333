package runner

import "time"

const (
	// DefaultServiceTimeout bounds every step without its own timeout
	DefaultServiceTimeout = 10 * time.Minute

	// MaxReasonableConcurrency is the point above which a warning is logged
	MaxReasonableConcurrency = 32

	// killGracePeriod is how long output pipes may stay open after the
	// process group has been killed
	killGracePeriod = 5 * time.Second

	// failureTailBytes is how much captured output is attached to a
	// synthesized failure message
	failureTailBytes = 4 * 1024
)
