package multiloop

import (
	"strconv"
	"strings"
	"time"

	"github.com/pitwall/timingpipeline/internal/errs"
	"github.com/rs/zerolog"
)

// ParseBatch parses one inbound ML buffer, one record per line, fields
// delimited by FieldSeparator. As with rmonitor.ParseBatch, an
// unrecognized prefix is logged and skipped and a malformed numeric
// field inside a recognized record silently defaults to zero: no parse
// error ever escapes this function.
func ParseBatch(data []byte, logger zerolog.Logger) []Record {
	lines := strings.Split(string(data), "\n")
	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, ok := parseLine(line, logger)
		if ok {
			records = append(records, rec)
		}
	}
	return records
}

func parseLine(line string, logger zerolog.Logger) (Record, bool) {
	sepIdx := strings.IndexByte(line, FieldSeparator)
	var prefix, rest string
	if sepIdx < 0 {
		prefix = line
	} else {
		prefix = line[:sepIdx]
		rest = line[sepIdx+1:]
	}
	fields := strings.Split(rest, string(rune(FieldSeparator)))
	if rest == "" {
		fields = nil
	}

	switch prefix {
	case "$H":
		return Record{Kind: KindHeartbeat, Raw: line, FlagText: fieldStr(fields, 0)}, true
	case "$E":
		return Record{
			Kind:       KindEntry,
			Raw:        line,
			CarNumber:  fieldStr(fields, 0),
			DriverName: fieldStr(fields, 1),
			Class:      fieldStr(fields, 2),
		}, true
	case "$L":
		return Record{
			Kind:          KindCompletedLap,
			Raw:           line,
			CarNumber:     fieldStr(fields, 0),
			PitStopCount:  fieldHex(fields, 1),
			LastLapPitted: fieldHex(fields, 2),
			StartPosition: fieldHex(fields, 3),
			LapsLed:       fieldHex(fields, 4),
			CurrentStatus: truncate(fieldStr(fields, 5), 12),
			BestLapTimeMs: fieldHex64(fields, 6),
			TimeBehindMs:  fieldHex64(fields, 7),
			PrecedingCar:  fieldStr(fields, 8),
		}, true
	case "$S":
		return Record{
			Kind:        KindCompletedSection,
			Raw:         line,
			CarNumber:   fieldStr(fields, 0),
			SectionID:   fieldStr(fields, 1),
			ElapsedMs:   int32(fieldHex64(fields, 2)),
			SectionTime: int32(fieldHex64(fields, 3)),
		}, true
	case "$X":
		return Record{
			Kind:          KindLineCrossing,
			Raw:           line,
			TransponderID: uint(fieldHex64(fields, 0)),
			LoopID:        uint(fieldHex64(fields, 1)),
			Timestamp:     parseTimestamp(fieldStr(fields, 2)),
		}, true
	case "$F":
		return Record{
			Kind:              KindFlag,
			Raw:               line,
			GreenMs:           fieldHex64(fields, 0),
			YellowMs:          fieldHex64(fields, 1),
			RedMs:             fieldHex64(fields, 2),
			LapCount:          fieldHex(fields, 3),
			YellowCount:       fieldHex(fields, 4),
			CurrentLeader:     fieldStr(fields, 5),
			LeadChanges:       fieldHex(fields, 6),
			AvgRaceSpeedX1000: fieldDec64(fields, 7),
		}, true
	case "$R":
		return Record{
			Kind:        KindRun,
			Raw:         line,
			SessionRef:  fieldHex(fields, 0),
			SessionName: fieldStr(fields, 1),
		}, true
	case "$T":
		return Record{
			Kind:         KindTrack,
			Raw:          line,
			TrackName:    fieldStr(fields, 0),
			TrackLengthM: fieldHex(fields, 1),
		}, true
	case "$A":
		return Record{Kind: KindAnnouncement, Raw: line, Message: fieldStr(fields, 0)}, true
	case "$V":
		return Record{Kind: KindVersion, Raw: line, VersionString: fieldStr(fields, 0)}, true
	case "$N":
		return Record{Kind: KindNewLeader, Raw: line, NewLeader: fieldStr(fields, 0)}, true
	case "$I":
		return Record{
			Kind:      KindInvalidatedLap,
			Raw:       line,
			CarNumber: fieldStr(fields, 0),
			LapNumber: fieldHex(fields, 1),
		}, true
	default:
		logger.Warn().Int(errs.Code, errs.ParseError).Str("prefix", prefix).Msg("unrecognised ML record prefix")
		return Record{}, false
	}
}

func fieldStr(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func fieldHex(fields []string, i int) int {
	n, err := strconv.ParseInt(fieldStr(fields, i), 16, 64)
	if err != nil {
		return 0
	}
	return int(n)
}

func fieldHex64(fields []string, i int) int64 {
	n, err := strconv.ParseInt(fieldStr(fields, i), 16, 64)
	if err != nil {
		return 0
	}
	return n
}

func fieldDec64(fields []string, i int) int64 {
	n, err := strconv.ParseInt(fieldStr(fields, i), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
