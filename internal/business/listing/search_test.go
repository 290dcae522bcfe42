package listing

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

func TestParseBudget(t *testing.T) {
	tests := []struct {
		in   string
		want Budget
	}{
		{in: "3000-5000", want: Budget{Min: 3000, Max: 5000}},
		{in: "3000", want: Budget{Min: 3000}},
		{in: "3000-", want: Budget{Min: 3000}},
		{in: "-5000", want: Budget{Max: 5000}},
		{in: " 2500 - 4000 ", want: Budget{Min: 2500, Max: 4000}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseBudget(tt.in)); diff != "" {
				t.Errorf("ParseBudget(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestMatchesBudget(t *testing.T) {
	tests := []struct {
		name   string
		rent   model.Rent
		budget string
		want   bool
	}{
		{name: "inside range", rent: "4000", budget: "3000-5000", want: true},
		{name: "above range", rent: "6000", budget: "3000-5000", want: false},
		{name: "inclusive lower bound", rent: "3000", budget: "3000-5000", want: true},
		{name: "inclusive upper bound", rent: "5000", budget: "3000-5000", want: true},
		{name: "min only", rent: "3500", budget: "3000", want: true},
		{name: "below min only", rent: "2500", budget: "3000", want: false},
		{name: "max only", rent: "4500", budget: "-5000", want: true},
		{name: "rent with suffix", rent: "4000/month", budget: "3000-5000", want: true},
		{name: "non numeric rent", rent: "ask owner", budget: "3000-5000", want: false},
		{name: "non numeric rent without budget", rent: "ask owner", budget: "", want: true},
		{name: "non numeric budget is no constraint", rent: "99999", budget: "abc", want: true},
		{name: "non numeric budget still needs numeric rent", rent: "call", budget: "abc", want: false},
		{name: "zero bounds are unset", rent: "100", budget: "0-0", want: true},
		{name: "currency prefix drops min", rent: "4000", budget: "₹3000-5000", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesBudget(tt.rent, tt.budget); got != tt.want {
				t.Errorf("matchesBudget(%q, %q) = %v, want %v", tt.rent, tt.budget, got, tt.want)
			}
		})
	}
}

func TestJSNumber(t *testing.T) {
	if got := jsNumber(""); got != 0 {
		t.Errorf("jsNumber(\"\") = %v, want 0", got)
	}
	if got := jsNumber("1e3"); got != 1000 {
		t.Errorf("jsNumber(1e3) = %v, want 1000", got)
	}
	if got := jsNumber("0x10"); got != 16 {
		t.Errorf("jsNumber(0x10) = %v, want 16", got)
	}
	for _, in := range []string{"abc", ".", "+", "1_000", "0x"} {
		if truthy(jsNumber(in)) {
			t.Errorf("jsNumber(%q) should not be a usable bound", in)
		}
	}
}

func TestFilter(t *testing.T) {
	listings := []model.Listing{
		{ID: "a", Location: "Near COEP, Shivajinagar", Rent: "4000", Amenities: "WiFi, CCTV, Guard"},
		{ID: "b", Location: "Kothrud", Rent: "4500", Amenities: "wifi"},
		{ID: "c", Location: "coep hostel road", Rent: "8000", Amenities: "cctv"},
		{ID: "d", Location: "COEP gate", Rent: "call owner", Amenities: "CCTV"},
	}
	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{name: "no criteria", c: Criteria{}, want: []string{"a", "b", "c", "d"}},
		{name: "college case insensitive", c: Criteria{College: "CoEp"}, want: []string{"a", "c", "d"}},
		{name: "college and budget", c: Criteria{College: "coep", Budget: "3000-5000"}, want: []string{"a"}},
		{name: "safety", c: Criteria{Safety: "cctv"}, want: []string{"a", "c", "d"}},
		{name: "all three", c: Criteria{College: "coep", Budget: "3000-9000", Safety: "guard"}, want: []string{"a"}},
		{name: "nothing matches", c: Criteria{College: "MIT"}, want: []string{}},
		{name: "non numeric budget", c: Criteria{Budget: "abc"}, want: []string{"a", "b", "c"}},
		{name: "non numeric budget with college", c: Criteria{College: "coep", Budget: "abc"}, want: []string{"a", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := Filter(listings, tt.c)
			got := []string{}
			for _, l := range once {
				got = append(got, l.ID)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filter mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(once, Filter(once, tt.c)); diff != "" {
				t.Errorf("Filter is not idempotent (-once +twice):\n%s", diff)
			}
		})
	}
}
