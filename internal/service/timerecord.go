package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/duongquang05/marathon-portal/internal/apperr"
)

var timeRecordPattern = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?$`)

// NormalizeTimeRecord validates a finish time written as H:MM[:SS] and
// returns it zero padded as HH:MM:SS. Seconds default to 0.
func NormalizeTimeRecord(raw string) (string, error) {
	m := timeRecordPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", apperr.Validation("invalid time format, use HH:MM:SS or HH:MM")
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds := 0
	if m[3] != "" {
		seconds, _ = strconv.Atoi(m[3])
	}
	switch {
	case hours > 23:
		return "", apperr.Validation("hours must be 0-23")
	case minutes > 59:
		return "", apperr.Validation("minutes must be 0-59")
	case seconds > 59:
		return "", apperr.Validation("seconds must be 0-59")
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds), nil
}

// ParseStandings reads a finishing position.
func ParseStandings(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperr.Validation("standings must be a number")
	}
	return n, nil
}

// ParseEntryNumber reads an explicit bib. Blank input means auto-assign and
// yields nil.
func ParseEntryNumber(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return nil, apperr.InvalidArgument("entry number must be a positive integer")
	}
	return &n, nil
}

func trimSpace(s string) string { return strings.TrimSpace(s) }
