package petdir

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Static is an in-memory Directory loaded once at startup. The profile set
// is immutable after construction, so reads need no locking.
type Static struct {
	pets map[string]*PetProfile
}

func NewStatic(profiles []PetProfile) *Static {
	pets := make(map[string]*PetProfile, len(profiles))
	for i := range profiles {
		p := profiles[i]
		pets[p.ID] = &p
	}
	return &Static{pets: pets}
}

// NewStaticFromFile loads a JSON array of pet profiles.
func NewStaticFromFile(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("petdir: read %s: %w", path, err)
	}

	var profiles []PetProfile
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("petdir: parse %s: %w", path, err)
	}

	for i, p := range profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("petdir: profile %d in %s has no id", i, path)
		}
	}

	return NewStatic(profiles), nil
}

func (s *Static) Pet(_ context.Context, id string) (*PetProfile, error) {
	if p, ok := s.pets[id]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

// Len returns the number of loaded profiles.
func (s *Static) Len() int {
	return len(s.pets)
}
