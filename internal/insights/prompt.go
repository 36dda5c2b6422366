package insights

import (
	"fmt"
	"strings"

	"tailwise-insights/internal/petdir"
)

// profileBlock renders the pet's structured data as plain-text lines for the
// prompt. Deterministic for a given profile: same input, same prompt.
func profileBlock(p *petdir.PetProfile) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Name: %s\n", p.Name)
	fmt.Fprintf(&sb, "Species: %s\n", p.Species)
	if p.Breed != "" {
		fmt.Fprintf(&sb, "Breed: %s\n", p.Breed)
	}
	if p.Gender != "" {
		fmt.Fprintf(&sb, "Gender: %s\n", p.Gender)
	}
	if p.AgeYears > 0 {
		fmt.Fprintf(&sb, "Age: %.1f years\n", p.AgeYears)
	}
	if p.WeightKg > 0 {
		fmt.Fprintf(&sb, "Weight: %.1f kg\n", p.WeightKg)
	}
	if len(p.Vaccinations) > 0 {
		fmt.Fprintf(&sb, "Vaccinations: %s\n", strings.Join(p.Vaccinations, ", "))
	}
	if len(p.ChronicConditions) > 0 {
		fmt.Fprintf(&sb, "Chronic conditions: %s\n", strings.Join(p.ChronicConditions, ", "))
	}
	if len(p.CurrentMedications) > 0 {
		meds := make([]string, 0, len(p.CurrentMedications))
		for _, m := range p.CurrentMedications {
			if m.Dosage != "" {
				meds = append(meds, fmt.Sprintf("%s (%s)", m.Name, m.Dosage))
			} else {
				meds = append(meds, m.Name)
			}
		}
		fmt.Fprintf(&sb, "Current medications: %s\n", strings.Join(meds, ", "))
	}

	return sb.String()
}

const promptPreamble = "You are a veterinary care assistant. " +
	"Based on this pet's profile, answer the request below.\n\n"

func tipsPrompt(p *petdir.PetProfile) string {
	return promptPreamble + profileBlock(p) +
		"\nGive ONE practical care tip for this pet, 1-2 sentences. " +
		"Plain text only, no markdown, no preamble."
}

func recommendationsPrompt(p *petdir.PetProfile) string {
	return promptPreamble + profileBlock(p) +
		"\nGive a numbered list of 3-5 short care recommendations for this pet, " +
		"one per line. Plain text only, no markdown."
}

func remindersPrompt(p *petdir.PetProfile) string {
	return promptPreamble + profileBlock(p) +
		"\nGive a numbered list of 2-3 upcoming care reminders for this pet, " +
		"one per line. For each, say when it is due using words like today, " +
		"tomorrow, this week or this month. Plain text only, no markdown."
}

func statusPrompt(p *petdir.PetProfile) string {
	return promptPreamble + profileBlock(p) +
		"\nDescribe this pet's overall health status. First line: one short " +
		"status phrase (under six words). Then a 1-2 sentence summary. " +
		"Plain text only, no markdown."
}
