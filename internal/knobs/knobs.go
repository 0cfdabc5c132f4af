// Package knobs holds the environment-driven tunables for the TLog peek
// cursor subsystem, following the teacher's read-env-or-default pattern
// (see internal/services/streams applyPolicyEnv in the teacher repo).
package knobs

import (
	"os"
	"strconv"
	"time"
)

// Knobs are the typed tunables named in the spec's external-interfaces table.
// All fields have production-sane defaults; Load overrides them from the
// environment when present and parseable, leaving the default in place
// otherwise (malformed values are ignored rather than treated as fatal,
// matching the teacher's applyPolicyEnv behavior).
type Knobs struct {
	// MergeCursorRetryTimes bounds the retry budget in peekSingleCursor.
	MergeCursorRetryTimes int
	// MergeCursorRetryDelay is the base backoff before the first retry.
	MergeCursorRetryDelay time.Duration
	// ParallelGetMoreRequests is the pipeline depth in ServerPeekCursor.
	ParallelGetMoreRequests int
	// PeekStatsInterval is the sampling window for slow-peer detection.
	PeekStatsInterval time.Duration
	// PeekStatsSlowAmount is the minimum slow-reply count before a reset is
	// considered.
	PeekStatsSlowAmount int
	// PeekStatsSlowRatio is the slow/(slow+fast) ratio threshold.
	PeekStatsSlowRatio float64
	// PeekMaxLatency is the RTT above which a reply counts as slow.
	PeekMaxLatency time.Duration
	// PeekResetInterval is the minimum interval between connection resets.
	PeekResetInterval time.Duration
	// DesiredTotalBytes is the minimum reply size for latency to count
	// toward the slow/fast classification at all.
	DesiredTotalBytes int
	// PeekCountSmallMessages, when true, makes small replies count toward
	// slow/fast classification too instead of being "unknown".
	PeekCountSmallMessages bool
}

// Default returns the built-in defaults.
func Default() Knobs {
	return Knobs{
		MergeCursorRetryTimes:   5,
		MergeCursorRetryDelay:   10 * time.Millisecond,
		ParallelGetMoreRequests: 32,
		PeekStatsInterval:       5 * time.Second,
		PeekStatsSlowAmount:     10,
		PeekStatsSlowRatio:      0.5,
		PeekMaxLatency:          50 * time.Millisecond,
		PeekResetInterval:       5 * time.Second,
		DesiredTotalBytes:       1 << 16,
		PeekCountSmallMessages:  false,
	}
}

// Load returns Default() overridden by any recognized environment variables.
func Load() Knobs {
	k := Default()
	applyEnvInt(&k.MergeCursorRetryTimes, "FLOWTLOG_MERGE_CURSOR_RETRY_TIMES")
	applyEnvDuration(&k.MergeCursorRetryDelay, "FLOWTLOG_MERGE_CURSOR_RETRY_DELAY_MS")
	applyEnvInt(&k.ParallelGetMoreRequests, "FLOWTLOG_PARALLEL_GET_MORE_REQUESTS")
	applyEnvDuration(&k.PeekStatsInterval, "FLOWTLOG_PEEK_STATS_INTERVAL_MS")
	applyEnvInt(&k.PeekStatsSlowAmount, "FLOWTLOG_PEEK_STATS_SLOW_AMOUNT")
	applyEnvFloat(&k.PeekStatsSlowRatio, "FLOWTLOG_PEEK_STATS_SLOW_RATIO")
	applyEnvDuration(&k.PeekMaxLatency, "FLOWTLOG_PEEK_MAX_LATENCY_MS")
	applyEnvDuration(&k.PeekResetInterval, "FLOWTLOG_PEEK_RESET_INTERVAL_MS")
	applyEnvInt(&k.DesiredTotalBytes, "FLOWTLOG_DESIRED_TOTAL_BYTES")
	applyEnvBool(&k.PeekCountSmallMessages, "FLOWTLOG_PEEK_COUNT_SMALL_MESSAGES")
	return k
}

func applyEnvInt(dst *int, name string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func applyEnvFloat(dst *float64, name string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}

func applyEnvBool(dst *bool, name string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

// applyEnvDuration reads the named variable as whole milliseconds.
func applyEnvDuration(dst *time.Duration, name string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms >= 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
}
