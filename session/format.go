package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatClock renders a duration as a fixed-width "HH:MM:SS.mmm" clock
// string, the format used for lastLapTime/totalTime/bestLapTime.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	s := int((d % time.Minute) / time.Second)
	ms := int((d % time.Second) / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// FormatGap renders a gap/difference duration as "m:ss.fff" when it
// spans a full minute or more, otherwise "s.fff" with no leading
// zero-padding on the seconds component.
func FormatGap(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	totalMs := d.Milliseconds()
	minutes := totalMs / 60000
	remMs := totalMs % 60000
	seconds := float64(remMs) / 1000.0
	if minutes > 0 {
		return fmt.Sprintf("%d:%06.3f", minutes, seconds)
	}
	return fmt.Sprintf("%.3f", seconds)
}

// ParseClock parses an "HH:MM:SS[.mmm]" wire clock string into a
// Duration. Malformed input yields 0: a malformed numeric field
// defaults to 0 and parsing proceeds rather than failing the record.
func ParseClock(text string) time.Duration {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	var hh, mm int
	var ss float64
	parts := strings.Split(text, ":")
	switch len(parts) {
	case 3:
		hh = atoiSafe(parts[0])
		mm = atoiSafe(parts[1])
		ss = atofSafe(parts[2])
	case 2:
		mm = atoiSafe(parts[0])
		ss = atofSafe(parts[1])
	case 1:
		ss = atofSafe(parts[0])
	default:
		return 0
	}
	total := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute +
		time.Duration(ss*float64(time.Second))
	return total
}

func atoiSafe(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func atofSafe(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// FormatLapDiff renders a lap-count gap/difference: "N lap" singular,
// "N laps" plural.
func FormatLapDiff(laps int) string {
	if laps < 0 {
		laps = -laps
	}
	if laps == 1 {
		return "1 lap"
	}
	return fmt.Sprintf("%d laps", laps)
}
