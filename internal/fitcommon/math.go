// Package fitcommon holds the search-space and optimizer plumbing shared by
// the fitting command and its tests.
package fitcommon

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LogLerp maps u in [0,1] onto [lo,hi] on a logarithmic scale. Both bounds
// must be positive.
func LogLerp(lo, hi, u float64) float64 {
	u = Clamp(u, 0, 1)
	return math.Exp(math.Log(lo) + u*(math.Log(hi)-math.Log(lo)))
}

// InvLogLerp is the inverse of LogLerp, clamped to [0,1].
func InvLogLerp(lo, hi, v float64) float64 {
	if v <= 0 || hi <= lo {
		return 0
	}
	return Clamp((math.Log(v)-math.Log(lo))/(math.Log(hi)-math.Log(lo)), 0, 1)
}

func ParseWorkers(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return 0, fmt.Errorf("empty value (use integer >= 1 or 'auto')")
	}
	if v == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q (use integer >= 1 or 'auto')", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d (must be >= 1 or 'auto')", n)
	}
	return n, nil
}
