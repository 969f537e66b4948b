package rmonitor

import (
	"strconv"
	"strings"

	"github.com/pitwall/timingpipeline/internal/errs"
	"github.com/rs/zerolog"
)

// ParseBatch parses one inbound buffer of newline-delimited RM records,
// in the order received. Unknown
// prefixes are logged at warning and skipped; malformed numeric fields
// inside a recognized record default to 0 and the record still emits —
// no error ever propagates out of ParseBatch.
func ParseBatch(data []byte, logger zerolog.Logger) []Record {
	lines := strings.Split(string(data), "\n")
	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		line = strings.TrimSpace(line)
		if line == "" {
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
	prefix, rest := splitPrefix(line)
	fields := splitFields(rest)

	switch prefix {
	case "$F":
		return Record{
			Kind:           KindHeartbeat,
			Raw:            line,
			LapsToGo:       fieldInt(fields, 0),
			TimeToGo:       fieldStr(fields, 1),
			LocalTimeOfDay: fieldStr(fields, 2),
			RaceTime:       fieldStr(fields, 3),
			FlagText:       strings.TrimSpace(fieldStr(fields, 4)),
		}, true
	case "$A":
		return Record{
			Kind:          KindCompetitorA,
			Raw:           line,
			CarNumber:     fieldStr(fields, 0),
			TransponderID: fieldUint(fields, 1),
			DriverName:    fieldStr(fields, 2),
			Class:         fieldStr(fields, 3),
			Team:          fieldStr(fields, 4),
		}, true
	case "$COMP":
		return Record{
			Kind:          KindCompetitorComp,
			Raw:           line,
			CarNumber:     fieldStr(fields, 0),
			DriverName:    fieldStr(fields, 1),
			Class:         fieldStr(fields, 2),
			TransponderID: fieldUint(fields, 3),
			Team:          fieldStr(fields, 4),
		}, true
	case "$B":
		return Record{
			Kind:        KindRunInfo,
			Raw:         line,
			SessionRef:  fieldInt(fields, 0),
			SessionName: fieldStr(fields, 1),
		}, true
	case "$C":
		return Record{
			Kind:        KindClass,
			Raw:         line,
			ClassNumber: fieldStr(fields, 0),
			ClassName:   fieldStr(fields, 1),
		}, true
	case "$E":
		return Record{
			Kind:         KindSetting,
			Raw:          line,
			SettingKey:   strings.ToUpper(strings.TrimSpace(fieldStr(fields, 0))),
			SettingValue: fieldStr(fields, 1),
		}, true
	case "$G":
		return Record{
			Kind:        KindRaceInfo,
			Raw:         line,
			Position:    fieldInt(fields, 0),
			CarNumber:   fieldStr(fields, 1),
			Laps:        fieldInt(fields, 2),
			RaceTimeStr: fieldStr(fields, 3),
		}, true
	case "$H":
		return Record{
			Kind:        KindPracticeQualifying,
			Raw:         line,
			Position:    fieldInt(fields, 0),
			CarNumber:   fieldStr(fields, 1),
			BestLap:     fieldInt(fields, 2),
			BestLapTime: fieldStr(fields, 3),
		}, true
	case "$J":
		return Record{
			Kind:        KindPassing,
			Raw:         line,
			CarNumber:   fieldStr(fields, 0),
			LapTime:     fieldStr(fields, 1),
			RaceTimeStr: fieldStr(fields, 2),
		}, true
	case "$I":
		return Record{Kind: KindReset, Raw: line}, true
	case "$COR":
		return Record{Kind: KindCorrectedFinish, Raw: line}, true
	default:
		logger.Warn().Int(errs.Code, errs.ParseError).Str("prefix", prefix).Msg("unrecognised RM record prefix")
		return Record{}, false
	}
}

// splitPrefix separates the "$X" token (X may be multiple letters, e.g.
// $COMP/$COR) from the rest of the line after the first comma.
func splitPrefix(line string) (prefix, rest string) {
	idx := strings.IndexByte(line, ',')
	if idx < 0 {
		return line, ""
	}
	return line[:idx], line[idx+1:]
}

// splitFields splits a comma-separated field list, honoring
// double-quoted fields (which may themselves be empty or contain
// embedded commas — none of the RM records in scope use that, but the
// quoting is still respected for robustness).
func splitFields(rest string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(rest); i++ {
		ch := rest[i]
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

func fieldStr(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func fieldInt(fields []string, i int) int {
	n, err := strconv.Atoi(fieldStr(fields, i))
	if err != nil {
		return 0
	}
	return n
}

func fieldUint(fields []string, i int) uint {
	n, err := strconv.ParseUint(fieldStr(fields, i), 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}
