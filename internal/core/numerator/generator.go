package numerator

import (
	"context"
	"fmt"
	"time"
)

// Generator generates sequential numbers.
// Implementations live in infrastructure/numerator (PostgreSQL) and
// infrastructure/storage/memory.
type Generator interface {
	// GetNextNumber generates the next number, e.g. AUD-2026-00001.
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the current sequence value (for migrations and seeding).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}

// SequenceKey returns the storage key of the sequence that numbers cfg in period.
func SequenceKey(cfg Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case ResetMonthly:
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case ResetYearly:
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// Format renders the n-th number of cfg in period.
func Format(cfg Config, period time.Time, n int64) string {
	pad := cfg.PadWidth
	if pad == 0 {
		pad = 5
	}
	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), pad, n)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, pad, n)
}
