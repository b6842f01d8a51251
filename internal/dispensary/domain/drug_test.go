package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDrugMatcherMatches(t *testing.T) {
	amox := Drug{Name: "Amoxicillin", GenericName: "amoxicillin", Strength: decimal.RequireFromString("500"), StrengthUnit: "mg"}

	cases := []struct {
		name    string
		matcher DrugMatcher
		want    bool
	}{
		{"exact", DrugMatcher{Name: "Amoxicillin", Strength: decimal.NewFromInt(500), StrengthUnit: "mg"}, true},
		{"case insensitive", DrugMatcher{Name: " amoxicillin ", Strength: decimal.RequireFromString("500.00"), StrengthUnit: "MG"}, true},
		{"strength differs", DrugMatcher{Name: "Amoxicillin", Strength: decimal.NewFromInt(250), StrengthUnit: "mg"}, false},
		{"unit differs", DrugMatcher{Name: "Amoxicillin", Strength: decimal.NewFromInt(500), StrengthUnit: "mcg"}, false},
		{"name differs", DrugMatcher{Name: "Ibuprofen", Strength: decimal.NewFromInt(500), StrengthUnit: "mg"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.matcher.Matches(amox); got != tc.want {
				t.Fatalf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDrugMatcherIsZero(t *testing.T) {
	if !(DrugMatcher{}).IsZero() {
		t.Fatalf("empty matcher should be zero")
	}
	if (DrugMatcher{NDC: "0093-4155"}).IsZero() {
		t.Fatalf("ndc matcher is not zero")
	}
}
