package logging

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Console timestamps are local wall-clock time to the millisecond.
const consoleTimeLayout = "15:04:05.000"

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(consoleTimeLayout)
}

// plainValue renders v without quoting, for the component/operation/queue
// prefix.
func plainValue(v slog.Value) string {
	v = v.Resolve()
	if err, ok := v.Any().(error); ok && v.Kind() == slog.KindAny {
		return err.Error()
	}
	return v.String()
}

// quotedValue renders v for a key=value pair, quoting text that would
// otherwise be ambiguous.
func quotedValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool, slog.KindInt64, slog.KindUint64, slog.KindDuration:
		return v.String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	default:
		s := plainValue(v)
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	}
}
