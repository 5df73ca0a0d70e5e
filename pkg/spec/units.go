package spec

import (
	"strconv"
	"strings"
)

// Canonical unit type names.
const (
	Studio  = "Studio"
	OneBR   = "1BR"
	TwoBR   = "2BR"
	ThreeBR = "3BR"
	FourBR  = "4BR"
)

// Bedrooms returns the bedroom count encoded in a unit type name.
// "Studio" is 0, "2BR" is 2. Unrecognized names count as 0.
func Bedrooms(unitType string) int {
	t := strings.ToUpper(strings.TrimSpace(unitType))
	if t == "" || strings.HasPrefix(t, "STUDIO") {
		return 0
	}
	end := 0
	for end < len(t) && t[end] >= '0' && t[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(t[:end])
	if err != nil {
		return 0
	}
	return n
}

// IsTwoBRPlus reports whether the unit type has two or more bedrooms.
func IsTwoBRPlus(unitType string) bool {
	return Bedrooms(unitType) >= 2
}
