package engine

import "fmt"

// ConfigError reports an invalid initialization parameter. Construction
// fails fast; bad parameters are never silently clamped.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// InvariantError reports an internal guard failure: a logic defect, not a
// recoverable runtime condition. The run aborts immediately with the
// violated invariant and the tick it was detected at.
type InvariantError struct {
	Invariant string
	Tick      uint64
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %q violated at tick %d: %s", e.Invariant, e.Tick, e.Detail)
}
