package service

import (
	"fmt"
	"strconv"
	"time"
)

const (
	specCodePrefix = "PE"
	rocYearOffset  = 1911
	maxSequence    = 99
)

// CodePrefix returns "PE" + ROC year (3 digits) + month (2 digits) for t.
func CodePrefix(t time.Time) string {
	return fmt.Sprintf("%s%03d%02d", specCodePrefix, t.Year()-rocYearOffset, int(t.Month()))
}

// NextCode returns the code following latest within prefix. An empty latest
// starts the bucket at 01.
func NextCode(prefix, latest string) (string, error) {
	seq := 1
	if latest != "" {
		if len(latest) < 2 {
			return "", fmt.Errorf("malformed spec code %q", latest)
		}
		last, err := strconv.Atoi(latest[len(latest)-2:])
		if err != nil {
			return "", fmt.Errorf("malformed spec code %q: %w", latest, err)
		}
		seq = last + 1
	}
	if seq > maxSequence {
		return "", fmt.Errorf("%w: spec codes for %s are exhausted", ErrConflict, prefix)
	}
	return fmt.Sprintf("%s%02d", prefix, seq), nil
}
