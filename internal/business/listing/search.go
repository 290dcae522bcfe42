package listing

import (
	"math"
	"strconv"
	"strings"

	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// Criteria are the optional student search inputs. Empty fields match everything.
type Criteria struct {
	College string `form:"college" json:"college"`
	Budget  string `form:"budget" json:"budget"`
	Safety  string `form:"safety" json:"safety"`
}

// Filter returns the listings matching every criterion, keeping order.
func Filter(listings []model.Listing, c Criteria) []model.Listing {
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if Matches(l, c) {
			out = append(out, l)
		}
	}
	return out
}

// Matches ANDs the college, budget and safety predicates.
func Matches(l model.Listing, c Criteria) bool {
	return matchesSubstring(l.Location, c.College) &&
		matchesBudget(l.Rent, c.Budget) &&
		matchesSubstring(l.Amenities, c.Safety)
}

func matchesSubstring(field, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(term))
}

// Budget is a parsed budget filter. A zero bound is "not set".
type Budget struct {
	Min float64
	Max float64
}

// ParseBudget reads "min-max", "min", "min-" or "-max". Parts that are not
// numbers count as unset, so "abc" parses to a budget with no bounds.
func ParseBudget(s string) Budget {
	parts := strings.Split(s, "-")
	var b Budget
	b.Min = jsNumber(parts[0])
	if len(parts) > 1 {
		b.Max = jsNumber(parts[1])
	}
	return b
}

// Contains reports whether rent lies inside the set bounds.
func (b Budget) Contains(rent float64) bool {
	hasMin, hasMax := truthy(b.Min), truthy(b.Max)
	switch {
	case hasMin && hasMax:
		return rent >= b.Min && rent <= b.Max
	case hasMin:
		return rent >= b.Min
	case hasMax:
		return rent <= b.Max
	}
	return true
}

func matchesBudget(rent model.Rent, budget string) bool {
	if budget == "" {
		return true
	}
	amount, ok := rent.Amount()
	if !ok {
		return false
	}
	return ParseBudget(budget).Contains(float64(amount))
}

func truthy(f float64) bool {
	return f != 0 && !math.IsNaN(f)
}

// jsNumber converts budget text the way a browser's Number() does for the
// inputs people type: blank is 0, decimal and exponent forms parse, anything
// else is NaN.
func jsNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
