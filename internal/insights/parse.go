package insights

import (
	"regexp"
	"strings"
	"time"
)

// Best-effort parsing of the model's free text into display items. This is
// heuristic and lossy on purpose: the output contract is a structured hint,
// not a guaranteed schema. Keep the fragility in this file; the queue and
// cache never see raw model text semantics.

const (
	maxRecommendations = 5
	maxReminders       = 3
	maxPills           = 3
)

// Leading list markers: "1.", "2)", "-", "•", "*".
var listMarkerRe = regexp.MustCompile(`^\s*(\d+[.)]\s*|[-•*]\s+)`)

// splitItems breaks the raw response into trimmed, non-empty lines with
// list markers stripped. markersFound reports whether any line carried a
// marker; without one, the whole trimmed response is a single generic item.
func splitItems(text string) (items []string, markersFound bool) {
	for _, line := range strings.Split(text, "\n") {
		stripped := listMarkerRe.ReplaceAllString(line, "")
		if stripped != line {
			markersFound = true
		}
		stripped = strings.TrimSpace(stripped)
		if stripped != "" {
			items = append(items, stripped)
		}
	}

	if !markersFound {
		if whole := strings.TrimSpace(text); whole != "" {
			return []string{whole}, false
		}
		return nil, false
	}
	return items, true
}

// classifyItem buckets a line by keyword.
func classifyItem(line string) ItemKind {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "vaccin"):
		return KindVaccination
	case strings.Contains(lower, "medic") || strings.Contains(lower, "pill") ||
		strings.Contains(lower, "dose"):
		return KindMedication
	case strings.Contains(lower, "check") || strings.Contains(lower, "appointment"):
		return KindCheckup
	default:
		return KindGeneral
	}
}

func iconFor(kind ItemKind) string {
	switch kind {
	case KindVaccination:
		return "💉"
	case KindMedication:
		return "💊"
	case KindCheckup:
		return "🩺"
	default:
		return "🐾"
	}
}

func colorFor(kind ItemKind) string {
	switch kind {
	case KindVaccination:
		return "#5B8DEF"
	case KindMedication:
		return "#F59E0B"
	case KindCheckup:
		return "#34D399"
	default:
		return "#9CA3AF"
	}
}

// dueDateFor scans for relative-time keywords. Default is three days out.
func dueDateFor(line string, now time.Time) time.Time {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "today"):
		return now
	case strings.Contains(lower, "tomorrow"):
		return now.AddDate(0, 0, 1)
	case strings.Contains(lower, "week"):
		return now.AddDate(0, 0, 7)
	case strings.Contains(lower, "month"):
		return now.AddDate(0, 0, 30)
	default:
		return now.AddDate(0, 0, 3)
	}
}

// splitTitleDetail separates "Title: detail" style lines. Lines without an
// early separator become the title with no detail.
func splitTitleDetail(line string) (title, detail string) {
	for _, sep := range []string{": ", " - "} {
		if idx := strings.Index(line, sep); idx > 0 && idx <= 60 {
			return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+len(sep):])
		}
	}
	return line, ""
}

func newItem(line string) InsightItem {
	kind := classifyItem(line)
	title, detail := splitTitleDetail(line)
	return InsightItem{
		Kind:   kind,
		Title:  title,
		Detail: detail,
		Icon:   iconFor(kind),
		Color:  colorFor(kind),
	}
}

// parseTip extracts a single tip: the first parsed item, or the whole
// trimmed response when no list markers are present.
func parseTip(text string) InsightItem {
	items, _ := splitItems(text)
	if len(items) == 0 {
		return newItem(strings.TrimSpace(text))
	}
	return newItem(items[0])
}

func parseRecommendations(text string) []InsightItem {
	lines, _ := splitItems(text)
	if len(lines) > maxRecommendations {
		lines = lines[:maxRecommendations]
	}
	items := make([]InsightItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, newItem(line))
	}
	return items
}

func parseReminders(text string, now time.Time) []InsightItem {
	lines, _ := splitItems(text)
	if len(lines) > maxReminders {
		lines = lines[:maxReminders]
	}
	items := make([]InsightItem, 0, len(lines))
	for _, line := range lines {
		item := newItem(line)
		due := dueDateFor(line, now)
		item.DueDate = &due
		items = append(items, item)
	}
	return items
}

// pillKeywords maps status keywords to short display chips, in match order.
var pillKeywords = []struct {
	keyword string
	pill    string
}{
	{"healthy", "Healthy"},
	{"active", "Active"},
	{"vaccin", "Vaccines"},
	{"medic", "Medication"},
	{"weight", "Weight"},
	{"diet", "Diet"},
	{"check", "Checkup"},
	{"senior", "Senior"},
}

// parseStatus extracts the status phrase (first line), keyword pills, and
// the full trimmed text as the summary.
func parseStatus(text string) (status string, pills []string, summary string) {
	summary = strings.TrimSpace(text)

	for _, line := range strings.Split(text, "\n") {
		l := strings.TrimSpace(listMarkerRe.ReplaceAllString(line, ""))
		if l == "" {
			continue
		}
		status = strings.TrimRight(l, ".!")
		// When the model ignores the one-phrase directive, fall back to the
		// first sentence.
		if idx := strings.Index(status, ". "); idx > 0 {
			status = status[:idx]
		}
		break
	}

	lower := strings.ToLower(summary)
	for _, pk := range pillKeywords {
		if strings.Contains(lower, pk.keyword) {
			pills = append(pills, pk.pill)
			if len(pills) == maxPills {
				break
			}
		}
	}
	if len(pills) == 0 {
		pills = []string{"General"}
	}

	return status, pills, summary
}
