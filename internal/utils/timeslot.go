package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	clock24 = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	clock12 = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(AM|PM)$`)
)

// To24Hour converts "9:30 AM", "2:00 pm" or "14:00" into a zero padded
// "HH:MM" that sorts lexically. A slot may also be a range such as
// "09:00 AM - 09:30 AM", in which case its start is used. Unrecognized
// values are returned unchanged and empty values sort first.
func To24Hour(slot string) string {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return "00:00"
	}
	if i := strings.Index(slot, "-"); i > 0 {
		slot = strings.TrimSpace(slot[:i])
	}

	if m := clock24.FindStringSubmatch(slot); m != nil {
		h, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%02d:%s", h, m[2])
	}

	m := clock12.FindStringSubmatch(slot)
	if m == nil {
		return slot
	}
	h, _ := strconv.Atoi(m[1])
	switch strings.ToUpper(m[3]) {
	case "PM":
		if h != 12 {
			h += 12
		}
	case "AM":
		if h == 12 {
			h = 0
		}
	}
	return fmt.Sprintf("%02d:%s", h, m[2])
}
