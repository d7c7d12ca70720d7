package taglink

import (
	"strconv"
	"strings"
)

// FormatValue encodes a tag value for text-based transports.
func FormatValue(v float64) []byte {
	return []byte(strconv.FormatFloat(v, 'g', -1, 64))
}

// ParseValue decodes a value produced by FormatValue.
func ParseValue(b []byte) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
}
