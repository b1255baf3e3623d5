package resilience

import (
	"math/rand"
	"time"
)

// DefaultDelays is the backoff schedule for ordinary task classes; AI and
// OCR tasks wait longer between attempts.
var (
	DefaultDelays = []int{60, 300, 900}
	AIDelays      = []int{120, 600, 1800}
)

// Countdown returns the redelivery delay in seconds for a task's retryIndex
// (0-based). Indexes past the explicit schedule grow exponentially from its
// last entry. With jitter the result spreads uniformly across +-20% to
// avoid retry storms, floored at 1 second.
func Countdown(retryIndex int, baseDelays []int, jitter bool) int {
	if len(baseDelays) == 0 {
		baseDelays = []int{60}
	}
	if retryIndex < 0 {
		retryIndex = 0
	}

	var seconds int
	if retryIndex < len(baseDelays) {
		seconds = baseDelays[retryIndex]
	} else {
		extra := retryIndex - len(baseDelays) + 1
		seconds = baseDelays[len(baseDelays)-1]
		for i := 0; i < extra; i++ {
			seconds *= 2
		}
	}

	if jitter {
		factor := 0.8 + rand.Float64()*0.4
		seconds = int(float64(seconds) * factor)
	}
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

// Schedule holds per-task-class delay overrides and implements the retry
// policy consumed by the task dispatcher. Precedence per class:
// explicit class override, then the runtime default override, then the
// built-in schedule.
type Schedule struct {
	classDelays map[string][]int
	defaults    []int
	maxRetries  int
	jitter      bool
}

func NewSchedule(defaults []int, maxRetries int, jitter bool) *Schedule {
	if len(defaults) == 0 {
		defaults = DefaultDelays
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Schedule{
		classDelays: make(map[string][]int),
		defaults:    defaults,
		maxRetries:  maxRetries,
		jitter:      jitter,
	}
}

func (s *Schedule) Override(taskClass string, delays []int) {
	if len(delays) > 0 {
		s.classDelays[taskClass] = delays
	}
}

func (s *Schedule) Countdown(taskClass string, retryIndex int) time.Duration {
	delays := s.defaults
	if override, ok := s.classDelays[taskClass]; ok {
		delays = override
	}
	return time.Duration(Countdown(retryIndex, delays, s.jitter)) * time.Second
}

func (s *Schedule) MaxRetries(string) int {
	return s.maxRetries
}
