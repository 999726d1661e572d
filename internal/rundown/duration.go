package rundown

import (
	"math"
	"strconv"
	"strings"
)

// maxSeconds is the largest second count whose millisecond value fits an int64
const maxSeconds = math.MaxInt64 / 1000

// ParseDuration converts an "H:MM:SS", "M:SS" or bare-seconds string into
// milliseconds. Malformed input yields 0 rather than an error so one bad
// entry cannot block the rest of the show.
func ParseDuration(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0
	}
	var seconds int64
	for _, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || n < 0 {
			return 0
		}
		if seconds > (maxSeconds-n)/60 {
			return 0
		}
		seconds = seconds*60 + n
	}
	return seconds * 1000
}

// FormatDuration renders milliseconds as M:SS, or H:MM:SS past an hour
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return strconv.FormatInt(h, 10) + ":" + pad2(m) + ":" + pad2(s)
	}
	return strconv.FormatInt(m, 10) + ":" + pad2(s)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// splitEvenly divides total across n parts; the first total%n parts get one
// extra millisecond so the parts always sum to total.
func splitEvenly(total int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	parts := make([]int64, n)
	base := total / int64(n)
	rem := total % int64(n)
	for i := range parts {
		parts[i] = base
		if int64(i) < rem {
			parts[i]++
		}
	}
	return parts
}
