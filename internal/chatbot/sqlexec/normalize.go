package sqlexec

import (
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05.999999"
	timeLayout      = "15:04:05.999999"
)

// normalize converts a scanned driver value into a JSON-friendly one:
// dates and times become ISO-8601 strings, NUMERIC becomes float64 and
// remaining byte slices become strings.
func normalize(v interface{}, dbType string) interface{} {
	dbType = strings.ToUpper(dbType)

	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		switch dbType {
		case "DATE":
			return val.Format(dateLayout)
		case "TIMESTAMP":
			return val.Format(timestampLayout)
		case "TIME":
			return val.Format(timeLayout)
		default:
			return val.Format(time.RFC3339Nano)
		}
	case []byte:
		if isDecimal(dbType) {
			if f, err := strconv.ParseFloat(string(val), 64); err == nil {
				return f
			}
		}
		return string(val)
	case string:
		if isDecimal(dbType) {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
		return val
	default:
		return val
	}
}

func isDecimal(dbType string) bool {
	return dbType == "NUMERIC" || dbType == "DECIMAL"
}
