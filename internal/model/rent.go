package model

import (
	"regexp"
	"strconv"
	"strings"
)

var rentNumber = regexp.MustCompile(`[0-9][0-9,]*(\.[0-9]+)?`)

// ParseRent reads a monthly rent such as "$2,800", "2800/mo" or "2.8k". Zero means unknown.
func ParseRent(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	m := rentNumber.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil || v <= 0 {
		return 0
	}
	rest := s[strings.Index(s, m)+len(m):]
	if strings.HasPrefix(strings.TrimSpace(rest), "k") {
		v *= 1000
	}
	return v
}
