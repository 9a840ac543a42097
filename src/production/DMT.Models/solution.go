package dmtmodels

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrValidation marks a solution application that fails the model
// constraints. Callers map it to a client error rather than a server error.
var ErrValidation = errors.New("validation failed")

// SolutionAreas are the cultivation zones a solution can be applied to.
var SolutionAreas = []string{"A", "B", "C"}

// concentrationPattern accepts values like "2.5 EC" or "6.2 pH".
var concentrationPattern = regexp.MustCompile(`^\d+(\.\d+)?\s?(EC|pH)$`)

// Bounds on solution fields, mirroring the collection schema.
const (
	SolutionTypeMinLen  = 3
	SolutionTypeMaxLen  = 50
	SolutionNotesMaxLen = 200
	SolutionMinQuantity = 1.0
)

// SolutionApplication is a manually logged nutrient or pH-correction event.
// Immutable once created.
type SolutionApplication struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Area          string             `bson:"area" json:"area"`
	Type          string             `bson:"type" json:"type"`
	Concentration string             `bson:"concentration" json:"concentration"`
	Quantity      float64            `bson:"quantity" json:"quantity"`
	Date          time.Time          `bson:"date" json:"date"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	Notes         string             `bson:"notes" json:"notes"`
}

// Validate checks the model constraints that the collection schema also
// enforces. maxQuantity is the configured upper bound in liters.
func (s *SolutionApplication) Validate(maxQuantity float64) error {
	if !isSolutionArea(s.Area) {
		return fmt.Errorf("%w: area %q is not one of %v", ErrValidation, s.Area, SolutionAreas)
	}
	if len(s.Type) < SolutionTypeMinLen || len(s.Type) > SolutionTypeMaxLen {
		return fmt.Errorf("%w: type must be %d-%d characters", ErrValidation, SolutionTypeMinLen, SolutionTypeMaxLen)
	}
	if !concentrationPattern.MatchString(s.Concentration) {
		return fmt.Errorf("%w: %q is not a valid concentration format", ErrValidation, s.Concentration)
	}
	if s.Quantity < SolutionMinQuantity || s.Quantity > maxQuantity {
		return fmt.Errorf("%w: quantity must be between %v and %v liters", ErrValidation, SolutionMinQuantity, maxQuantity)
	}
	if s.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if len(s.Notes) > SolutionNotesMaxLen {
		return fmt.Errorf("%w: notes must be at most %d characters", ErrValidation, SolutionNotesMaxLen)
	}
	return nil
}

func isSolutionArea(area string) bool {
	for _, a := range SolutionAreas {
		if area == a {
			return true
		}
	}
	return false
}
