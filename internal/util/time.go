package util

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTimeFlexible accepts the timestamp spellings seen across producer
// versions: RFC 3339 with or without fractional seconds, epoch milliseconds,
// and epoch seconds.
func ParseTimeFlexible(timeStr string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, timeStr)
	if err == nil {
		return t.UTC(), nil
	}
	t, err = time.Parse(time.RFC3339, timeStr)
	if err == nil {
		return t.UTC(), nil
	}

	n, err := strconv.ParseInt(timeStr, 10, 64)
	if err == nil {
		// Heuristic: epoch seconds fit in 10 digits until late 2286.
		if n < 1e11 {
			return time.Unix(n, 0).UTC(), nil
		}
		return time.UnixMilli(n).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
}
