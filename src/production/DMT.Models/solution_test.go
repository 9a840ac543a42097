package dmtmodels

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validSolution() SolutionApplication {
	return SolutionApplication{
		Area:          "A",
		Type:          "General",
		Concentration: "2.5 EC",
		Quantity:      10,
		Date:          time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSolutionValidate(t *testing.T) {
	const maxQuantity = 1000

	t.Run("valid", func(t *testing.T) {
		sol := validSolution()
		if err := sol.Validate(maxQuantity); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("valid pH concentration", func(t *testing.T) {
		sol := validSolution()
		sol.Concentration = "6.2 pH"
		if err := sol.Validate(maxQuantity); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("concentration without space", func(t *testing.T) {
		sol := validSolution()
		sol.Concentration = "3EC"
		if err := sol.Validate(maxQuantity); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	invalid := []struct {
		name   string
		mutate func(*SolutionApplication)
	}{
		{"bad area", func(s *SolutionApplication) { s.Area = "D" }},
		{"area with label prefix", func(s *SolutionApplication) { s.Area = "Area A" }},
		{"type too short", func(s *SolutionApplication) { s.Type = "pH" }},
		{"type too long", func(s *SolutionApplication) { s.Type = strings.Repeat("x", 51) }},
		{"non-numeric concentration", func(s *SolutionApplication) { s.Concentration = "abc" }},
		{"unit before number", func(s *SolutionApplication) { s.Concentration = "EC 3" }},
		{"lowercase unit", func(s *SolutionApplication) { s.Concentration = "3 ec" }},
		{"quantity below minimum", func(s *SolutionApplication) { s.Quantity = 0.5 }},
		{"quantity above maximum", func(s *SolutionApplication) { s.Quantity = 1001 }},
		{"zero date", func(s *SolutionApplication) { s.Date = time.Time{} }},
		{"notes too long", func(s *SolutionApplication) { s.Notes = strings.Repeat("n", 201) }},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			sol := validSolution()
			tc.mutate(&sol)
			err := sol.Validate(maxQuantity)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}
