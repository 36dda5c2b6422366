package cache

import (
	"fmt"
	"strings"
)

// Key identifies a cached response by feature kind and subject.
type Key struct {
	Feature   string // tips | recommendations | reminders | status
	SubjectID string // pet identifier
}

// String converts the structured key into the final string used in Redis/map.
func (k Key) String() string {
	// insight:<FEATURE>:<SUBJECT_ID>
	return fmt.Sprintf("insight:%s:%s", k.Feature, k.SubjectID)
}

// ParseKey is the inverse of Key.String, used by the logging decorator to
// recover structured fields from a raw key.
func ParseKey(s string) (Key, bool) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] != "insight" {
		return Key{}, false
	}
	return Key{Feature: parts[1], SubjectID: parts[2]}, true
}
