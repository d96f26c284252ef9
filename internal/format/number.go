// Package format holds text formatting helpers for numbers and tables.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Number is any built-in integer or float type.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// FormatNumber renders num with a comma every three digits of the integer part.
func FormatNumber[T Number](num T) string {
	switch v := any(num).(type) {
	case int:
		return humanize.Comma(int64(v))
	case int8:
		return humanize.Comma(int64(v))
	case int16:
		return humanize.Comma(int64(v))
	case int32:
		return humanize.Comma(int64(v))
	case int64:
		return humanize.Comma(v)
	case uint:
		return formatUint(uint64(v))
	case uint8:
		return formatUint(uint64(v))
	case uint16:
		return formatUint(uint64(v))
	case uint32:
		return formatUint(uint64(v))
	case uint64:
		return formatUint(v)
	case float32:
		return FormatDigits(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case float64:
		return humanize.Commaf(v)
	default:
		// Named numeric types.
		return FormatDigits(fmt.Sprint(num))
	}
}

func formatUint(u uint64) string {
	if u > math.MaxInt64 {
		return FormatDigits(strconv.FormatUint(u, 10))
	}
	return humanize.Comma(int64(u))
}

// FormatDigits inserts thousands separators into raw numeric text. Only the run
// of digits directly left of the decimal point (or the end) is grouped; sign,
// fraction and any other text are kept as is.
func FormatDigits(s string) string {
	intEnd := strings.IndexByte(s, '.')
	if intEnd < 0 {
		intEnd = len(s)
	}
	intStart := intEnd
	for intStart > 0 && isDigit(s[intStart-1]) {
		intStart--
	}
	digits := s[intStart:intEnd]
	if len(digits) <= 3 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(digits)/3)
	b.WriteString(s[:intStart])
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	b.WriteString(s[intEnd:])
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
