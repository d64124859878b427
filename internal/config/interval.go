package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidInterval is wrapped by every ParseInterval failure.
var ErrInvalidInterval = errors.New("invalid interval")

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// ParseInterval parses a fixed tick interval.
//
// Supported forms:
//   - Go duration: "500ms", "2m"
//   - HH:MM: "00:05" (five minutes), "01:30"
//   - constant-delay descriptor: "@every 10s"
//
// Cron field expressions and other descriptors ("@hourly") are rejected: they
// describe wall-clock times, not a fixed cadence.
func ParseInterval(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidInterval)
	}

	if strings.HasPrefix(s, "@") {
		return parseDescriptor(s)
	}
	if strings.ContainsAny(s, " \t") {
		return 0, fmt.Errorf("%w: %q looks like a cron expression; use a duration or '@every <d>'", ErrInvalidInterval, raw)
	}

	if m := reHHMM.FindStringSubmatch(s); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return 0, fmt.Errorf("%w: minutes out of range in %q", ErrInvalidInterval, raw)
		}
		return positive(raw, time.Duration(hh)*time.Hour+time.Duration(mm)*time.Minute)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q (use a duration like '1s', HH:MM, or '@every 1s')", ErrInvalidInterval, raw)
	}
	return positive(raw, d)
}

// parseDescriptor checks the descriptor with cron, then takes the delay from
// the argument itself: cron rounds "@every" delays to whole seconds.
func parseDescriptor(s string) (time.Duration, error) {
	sched, err := cron.ParseStandard(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidInterval, err)
	}
	if _, ok := sched.(cron.ConstantDelaySchedule); !ok {
		return 0, fmt.Errorf("%w: %q is not a fixed delay; use '@every <d>'", ErrInvalidInterval, s)
	}
	d, err := time.ParseDuration(strings.TrimSpace(strings.TrimPrefix(s, "@every")))
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidInterval, s, err)
	}
	return positive(s, d)
}

func positive(raw string, d time.Duration) (time.Duration, error) {
	if d <= 0 {
		return 0, fmt.Errorf("%w: %q must be > 0", ErrInvalidInterval, raw)
	}
	return d, nil
}
