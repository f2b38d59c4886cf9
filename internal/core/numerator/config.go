// Package numerator provides domain contracts for human-readable numbering
// of audits and other aggregates.
package numerator

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict issues one UPSERT ... RETURNING per number.
	// Numbers are gap-free when issued inside the caller's transaction.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges in memory. Gaps appear after restarts.
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once by StrategyCached.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Reset periods.
const (
	ResetYearly  = "year"
	ResetMonthly = "month"
	ResetNever   = "never"
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "AUD")
	Prefix string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod is one of ResetYearly, ResetMonthly, ResetNever
	ResetPeriod string
}

// DefaultConfig returns PREFIX-YYYY-NNNNN numbering reset every year.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: ResetYearly,
	}
}
