package petdir

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStaticLookup(t *testing.T) {
	t.Parallel()

	dir := NewStatic([]PetProfile{
		{ID: "p1", Name: "Milo", Species: "cat"},
		{ID: "p2", Name: "Rex", Species: "dog", Breed: "beagle"},
	})

	p, err := dir.Pet(context.Background(), "p2")
	if err != nil {
		t.Fatalf("Pet: %v", err)
	}
	if p.Name != "Rex" || p.Breed != "beagle" {
		t.Fatalf("unexpected profile: %#v", p)
	}

	if _, err := dir.Pet(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStaticFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pets.json")
	payload := `[
		{"id":"p1","name":"Milo","species":"cat","age_years":3.5,
		 "vaccinations":["rabies"],
		 "current_medications":[{"name":"Heartgard","dosage":"monthly"}]}
	]`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	dir, err := NewStaticFromFile(path)
	if err != nil {
		t.Fatalf("NewStaticFromFile: %v", err)
	}
	if dir.Len() != 1 {
		t.Fatalf("expected 1 pet, got %d", dir.Len())
	}

	p, err := dir.Pet(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Pet: %v", err)
	}
	if p.AgeYears != 3.5 || len(p.CurrentMedications) != 1 {
		t.Fatalf("profile not decoded: %#v", p)
	}
}

func TestStaticFromFileRejectsMissingID(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pets.json")
	if err := os.WriteFile(path, []byte(`[{"name":"NoID","species":"cat"}]`), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := NewStaticFromFile(path); err == nil {
		t.Fatalf("expected error for profile without id")
	}
}
