package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dayWeekPrefix = regexp.MustCompile(`^(\d+)([dw])`)

// ParseDuration extends time.ParseDuration to support days (d) and weeks (w), alone or
// followed by standard units ("1w2d", "3d12h"). "", "perm" and "permanent" mean no
// duration and return 0.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "perm", "permanent":
		return 0, nil
	}

	var total time.Duration
	for {
		m := dayWeekPrefix.FindStringSubmatch(s)
		if m == nil {
			break
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("invalid day value: %s", m[1])
		}
		unit := 24 * time.Hour
		if m[2] == "w" {
			unit *= 7
		}
		total += time.Duration(n) * unit
		s = s[len(m[0]):]
	}
	if s == "" {
		return total, nil
	}

	rest, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if rest < 0 {
		return 0, fmt.Errorf("duration must not be negative: %s", s)
	}
	return total + rest, nil
}

// FormatDuration renders d with the largest units first, e.g. "2d 3h", "10m", "45s".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	units := []struct {
		size   time.Duration
		suffix string
	}{
		{24 * time.Hour, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
	}

	var parts []string
	for _, u := range units {
		if d >= u.size {
			n := d / u.size
			d -= n * u.size
			parts = append(parts, fmt.Sprintf("%d%s", n, u.suffix))
		}
	}
	if len(parts) == 0 {
		return d.String()
	}
	return strings.Join(parts, " ")
}
