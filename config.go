package ktregex

import (
	"fmt"

	"github.com/krokodile/ktregex/internal/opt"
	"github.com/krokodile/ktregex/internal/parser"
	"github.com/krokodile/ktregex/internal/vm"
)

// Options is the compile-time/runtime option bitmap, spec.md section 6.
// It is a re-export of internal/opt.Options so callers never need to
// import an internal package to build an option value.
type Options = opt.Options

// Option bits, matching spec.md section 6 exactly.
const (
	Insensitive = opt.Insensitive
	Unanchored  = opt.Unanchored
	Extended    = opt.Extended
	Global      = opt.Global
	Multiline   = opt.Multiline
	Continue    = opt.Continue
)

// Config bounds the resources a single compiled pattern may consume,
// doc-commented the way meta.Config/meta.DefaultConfig are in the
// teacher repo, but naming the limits spec.md section 4.3 and
// original_source/ktre.h's KTRE_MAX_* constants actually define.
type Config struct {
	// MaxGroups caps the number of capture groups a pattern may declare.
	// Default: parser.DefaultMaxGroups (100, ktre.h's KTRE_MAX_GROUPS).
	MaxGroups int

	// MaxThreads caps the backtracking thread stack's depth.
	// Default: 200 (ktre.h's KTRE_MAX_THREAD).
	MaxThreads int

	// MaxCallDepth caps subroutine-call nesting ((?1)/(?R) recursion).
	// Default: 100 (ktre.h's KTRE_MAX_CALL_DEPTH).
	MaxCallDepth int
}

// DefaultConfig returns ktregex's default resource limits.
func DefaultConfig() Config {
	v := vm.DefaultConfig()
	return Config{
		MaxGroups:    parser.DefaultMaxGroups,
		MaxThreads:   v.MaxThreads,
		MaxCallDepth: v.MaxCallDepth,
	}
}

// Validate reports whether c's limits are usable; all three must be
// positive.
func (c Config) Validate() error {
	if c.MaxGroups <= 0 {
		return fmt.Errorf("ktregex: Config.MaxGroups must be positive, got %d", c.MaxGroups)
	}
	if c.MaxThreads <= 0 {
		return fmt.Errorf("ktregex: Config.MaxThreads must be positive, got %d", c.MaxThreads)
	}
	if c.MaxCallDepth <= 0 {
		return fmt.Errorf("ktregex: Config.MaxCallDepth must be positive, got %d", c.MaxCallDepth)
	}
	return nil
}

func (c Config) vmConfig() vm.Config {
	return vm.Config{MaxThreads: c.MaxThreads, MaxCallDepth: c.MaxCallDepth}
}

// Stats reports bookkeeping ktregex exposes in place of ktre.c's
// allocator-statistics struct (spec.md section 1 allows this: the
// tracking allocator is diagnostic only), read via (*Regex).Stats.
type Stats struct {
	// Instructions is the size of the compiled bytecode program.
	Instructions int
	// Groups is the number of capture groups, including group 0.
	Groups int
	// PeakThreads is the largest backtracking thread-stack depth any
	// Exec/Filter/Split call on this Regex has reached so far; a Copy
	// starts again from 0.
	PeakThreads int
	// CaptureBytes is the size in bytes of one capture vector
	// (2*Groups ints), for memory budgeting.
	CaptureBytes int
}
