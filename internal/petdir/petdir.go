// Package petdir defines the domain data contract the insights service
// reads pet profiles from. The platform's document database sits behind
// this interface; a static JSON-backed directory covers dev and demo use.
package petdir

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a pet identifier does not resolve.
var ErrNotFound = errors.New("petdir: pet not found")

// Medication is one entry in a pet's current medication list.
type Medication struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage,omitempty"`
}

// PetProfile is the slice of a pet's record the prompt builders consume.
type PetProfile struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Species            string       `json:"species"`
	Breed              string       `json:"breed,omitempty"`
	Gender             string       `json:"gender,omitempty"`
	AgeYears           float64      `json:"age_years,omitempty"`
	WeightKg           float64      `json:"weight_kg,omitempty"`
	Vaccinations       []string     `json:"vaccinations,omitempty"`
	ChronicConditions  []string     `json:"chronic_conditions,omitempty"`
	CurrentMedications []Medication `json:"current_medications,omitempty"`
}

// Directory resolves pet identifiers to profiles.
type Directory interface {
	Pet(ctx context.Context, id string) (*PetProfile, error)
}
