package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// presets maps names to B/S rule strings of well known life-like automata.
var presets = map[string]string{
	"life":       "B3/S23",
	"highlife":   "B36/S23",
	"seeds":      "B2/S",
	"daynight":   "B3678/S34678",
	"maze":       "B3/S12345",
	"replicator": "B1357/S1357",
}

// Presets lists the available preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns the named life-like table.
func Preset(name string) (*Table, error) {
	rule, ok := presets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown preset %q", ErrTable, name)
	}
	t, err := ParseRuleString(rule)
	if err != nil {
		return nil, err
	}
	t.Name = strings.ToLower(name)
	return t, nil
}

// ParseRuleString parses birth/survival notation such as "B3/S23". The
// order of the two parts is free and either may be empty ("B2/S").
func ParseRuleString(s string) (*Table, error) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(s)), "/")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: rule %q is not B…/S…", ErrTable, s)
	}
	var birth, survive []int
	var sawB, sawS bool
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: empty part in rule %q", ErrTable, s)
		}
		digits, err := parseDigits(p[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", ErrTable, s, err)
		}
		switch p[0] {
		case 'B':
			birth, sawB = digits, true
		case 'S':
			survive, sawS = digits, true
		default:
			return nil, fmt.Errorf("%w: rule %q: unexpected %q", ErrTable, s, p[0])
		}
	}
	if !sawB || !sawS {
		return nil, fmt.Errorf("%w: rule %q needs both B and S parts", ErrTable, s)
	}
	return LifeLike(strings.ToUpper(strings.TrimSpace(s)), birth, survive)
}

func parseDigits(s string) ([]int, error) {
	out := make([]int, 0, len(s))
	for _, r := range s {
		n, err := strconv.Atoi(string(r))
		if err != nil || n > 8 {
			return nil, fmt.Errorf("bad neighbour count %q", r)
		}
		out = append(out, n)
	}
	return out, nil
}
