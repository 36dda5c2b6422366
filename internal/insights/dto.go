package insights

import "time"

// Feature names the four insight kinds. The value doubles as the cache key
// segment and the metrics label.
type Feature string

const (
	FeatureTips            Feature = "tips"
	FeatureRecommendations Feature = "recommendations"
	FeatureReminders       Feature = "reminders"
	FeatureStatus          Feature = "status"
)

// ItemKind is the heuristic classification of a parsed item.
type ItemKind string

const (
	KindVaccination ItemKind = "vaccination"
	KindMedication  ItemKind = "medication"
	KindCheckup     ItemKind = "checkup"
	KindGeneral     ItemKind = "general"
)

// InsightItem is one display item coerced out of the model's free text.
// The icon and color are keyword-derived display hints, nothing more.
type InsightItem struct {
	Kind    ItemKind   `json:"kind"`
	Title   string     `json:"title"`
	Detail  string     `json:"detail,omitempty"`
	Icon    string     `json:"icon"`
	Color   string     `json:"color"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

type TipsResult struct {
	PetID string      `json:"pet_id"`
	Tip   InsightItem `json:"tip"`
}

type RecommendationsResult struct {
	PetID string        `json:"pet_id"`
	Items []InsightItem `json:"items"`
}

type RemindersResult struct {
	PetID string        `json:"pet_id"`
	Items []InsightItem `json:"items"`
}

type StatusResult struct {
	PetID   string   `json:"pet_id"`
	Status  string   `json:"status"`
	Pills   []string `json:"pills"`
	Summary string   `json:"summary"`
}
