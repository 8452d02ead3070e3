package memmap

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/inhies/go-bytesize"
)

// ParseLength parses a byte count as written in linker scripts: decimal,
// 0x-prefixed hex, or a whole number with a K, M or G suffix (powers of
// 1024). Fractions are rejected.
func ParseLength(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("memmap: empty length")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	if strings.ContainsRune(s, '.') {
		return 0, fmt.Errorf("memmap: length %q is not a whole byte count", s)
	}
	digits := len(s) - len(strings.TrimLeft(s, "0123456789"))
	if digits == len(s) {
		return strconv.ParseUint(s, 10, 64)
	}
	if digits == 0 {
		return 0, fmt.Errorf("memmap: length %q has no byte count", s)
	}
	unit := strings.ToUpper(strings.TrimSpace(s[digits:]))
	switch unit {
	case "K", "M", "G":
		unit += "B"
	case "KIB", "MIB", "GIB":
		unit = unit[:1] + "B"
	}
	s = s[:digits] + unit
	b, err := bytesize.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("memmap: length %q: %w", s, err)
	}
	v := float64(b)
	if v < 0 || v > math.MaxUint64 || v != math.Trunc(v) {
		return 0, fmt.Errorf("memmap: length %q is not a whole byte count", s)
	}
	return uint64(v), nil
}

// FormatLength renders n the way a linker script would, using K or M when
// the value is an exact multiple.
func FormatLength(n uint64) string {
	switch {
	case n != 0 && n%(1<<20) == 0:
		return fmt.Sprintf("%dM", n>>20)
	case n != 0 && n%(1<<10) == 0:
		return fmt.Sprintf("%dK", n>>10)
	}
	return strconv.FormatUint(n, 10)
}
