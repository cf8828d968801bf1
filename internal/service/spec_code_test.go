package service

import (
	"errors"
	"testing"
	"time"
)

func TestCodePrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC), "PE11403"},
		{time.Date(2025, time.December, 31, 23, 0, 0, 0, time.UTC), "PE11412"},
		{time.Date(2011, time.January, 1, 0, 0, 0, 0, time.UTC), "PE10001"},
		{time.Date(1999, time.June, 1, 0, 0, 0, 0, time.UTC), "PE08806"},
	}
	for _, tt := range tests {
		if got := CodePrefix(tt.at); got != tt.want {
			t.Errorf("CodePrefix(%s) = %q, want %q", tt.at.Format("2006-01"), got, tt.want)
		}
	}
}

func TestNextCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		latest  string
		want    string
		wantErr error
	}{
		{"empty bucket", "", "PE1140301", nil},
		{"increments", "PE1140301", "PE1140302", nil},
		{"carries tens", "PE1140309", "PE1140310", nil},
		{"last slot", "PE1140398", "PE1140399", nil},
		{"exhausted", "PE1140399", "", ErrConflict},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NextCode("PE11403", tt.latest)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NextCode error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NextCode: %v", err)
			}
			if got != tt.want {
				t.Errorf("NextCode(%q) = %q, want %q", tt.latest, got, tt.want)
			}
		})
	}

	if _, err := NextCode("PE11403", "PE11403xx"); err == nil {
		t.Error("malformed latest code accepted")
	}
}
