// Package simerr defines the sentinel error kinds shared across the
// simulator. Per-process faults are recorded on the PCB and never
// propagate; scheduler-level errors propagate to the host via these
// sentinels wrapped with fmt.Errorf("...: %w", ...).
package simerr

import "errors"

var (
	// ErrConfig marks an invalid configuration (cores/quantum/policy) at
	// construction time. Fatal before admission.
	ErrConfig = errors.New("simerr: invalid configuration")

	// ErrAddressOutOfRange marks a memory access outside the modeled
	// address space [0, Mmain+Msec). Surfaced as a per-process Failed
	// transition; never brings down the scheduler.
	ErrAddressOutOfRange = errors.New("simerr: address out of range")

	// ErrEngineException marks any fault reported by the instruction
	// engine. Treated the same as ErrAddressOutOfRange.
	ErrEngineException = errors.New("simerr: engine exception")

	// ErrPolicyViolation marks an invariant broken at runtime (a core
	// reports idle while still holding a PCB, two cores claim the same
	// PCB). Fatal: the scheduler must shut down cleanly and re-raise.
	ErrPolicyViolation = errors.New("simerr: scheduler policy violation")

	// ErrShutdownInProgress is returned by admit/tick once shutdown has
	// been requested. The call is a no-op.
	ErrShutdownInProgress = errors.New("simerr: shutdown in progress")
)
