// Package timeslot converts between wall-clock time strings and the
// minutes-since-midnight slot encoding used by result rows.
package timeslot

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxMinutes is the largest valid slot (23:59).
const MaxMinutes = 23*60 + 59

// ErrInvalidTime is returned for strings that are not a recognizable
// 12-hour or 24-hour clock time.
var ErrInvalidTime = errors.New("invalid time format (use HH:MM or HH:MM AM/PM)")

var (
	re12 = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*(AM|PM)$`)
	re24 = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// ToMinutes parses "3:40 PM", "03:40pm" or "15:40" into minutes since
// midnight. The result is always in 0..MaxMinutes; anything else fails
// with ErrInvalidTime.
func ToMinutes(s string) (int, error) {
	str := strings.ToUpper(strings.TrimSpace(s))
	if str == "" {
		return 0, ErrInvalidTime
	}

	if m := re12.FindStringSubmatch(str); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if hh < 1 || hh > 12 || mm > 59 {
			return 0, ErrInvalidTime
		}
		if hh == 12 && m[3] == "AM" {
			hh = 0
		}
		if hh != 12 && m[3] == "PM" {
			hh += 12
		}
		return hh*60 + mm, nil
	}

	if m := re24.FindStringSubmatch(str); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if hh > 23 || mm > 59 {
			return 0, ErrInvalidTime
		}
		return hh*60 + mm, nil
	}

	return 0, ErrInvalidTime
}

// ToHHMM renders minutes since midnight as zero-padded "HH:MM".
func ToHHMM(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
