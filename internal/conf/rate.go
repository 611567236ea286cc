package conf

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// defaultRateWindow applies to rates given as a bare number.
const defaultRateWindow = time.Hour

// Rate is a number of events allowed over a window. It decodes from either
// "N", meaning N per hour, or "N/duration" such as "10/1m".
type Rate struct {
	Events   float64       `json:"events,omitempty"`
	OverTime time.Duration `json:"over_time,omitempty"`
}

func (r *Rate) window() time.Duration {
	if r.OverTime == 0 {
		return defaultRateWindow
	}
	return r.OverTime
}

// EventsPerSecond is the sustained refill rate of a limiter built from r.
func (r *Rate) EventsPerSecond() float64 {
	return r.Events / r.window().Seconds()
}

// Burst is how many events may happen back to back. It is never below one.
func (r *Rate) Burst() int {
	return max(1, int(r.Events))
}

// Decode implements envconfig.Decoder. r is left untouched on error.
func (r *Rate) Decode(value string) error {
	events, window, found := strings.Cut(value, "/")
	if !found {
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("rate: %q is neither a number nor events/duration", value)
		}
		*r = Rate{Events: n, OverTime: defaultRateWindow}
		return nil
	}

	// events must fit a float64 mantissa
	n, err := strconv.ParseUint(events, 10, 52)
	if err != nil {
		return fmt.Errorf("rate: invalid event count in %q: %w", value, err)
	}
	d, err := time.ParseDuration(window)
	if err != nil {
		return fmt.Errorf("rate: invalid window in %q: %w", value, err)
	}

	*r = Rate{Events: float64(n), OverTime: d}
	return nil
}

func (r *Rate) String() string {
	if r.window() == defaultRateWindow {
		return strconv.FormatFloat(r.Events, 'f', -1, 64)
	}
	return strconv.FormatUint(uint64(r.Events), 10) + "/" + r.OverTime.String()
}
