package workflow

import (
	"sort"

	"github.com/spec-kit/creative-board/internal/domain"
)

// SortByVersion orders revisions by ascending version in place.
func SortByVersion(revisions []domain.Revision) {
	sort.SliceStable(revisions, func(i, j int) bool {
		return revisions[i].Version < revisions[j].Version
	})
}

// NextVersion is one past the highest version ever recorded, so versions are
// never reused even after a review cycle.
func NextVersion(revisions []domain.Revision) int {
	highest := 0
	for _, rev := range revisions {
		if rev.Version > highest {
			highest = rev.Version
		}
	}
	return highest + 1
}

// Current returns the revision with the highest version.
func Current(revisions []domain.Revision) (domain.Revision, bool) {
	if len(revisions) == 0 {
		return domain.Revision{}, false
	}
	current := revisions[0]
	for _, rev := range revisions[1:] {
		if rev.Version > current.Version {
			current = rev
		}
	}
	return current, true
}

// LatestHasFeedback is true iff the current revision carries customer feedback.
func LatestHasFeedback(revisions []domain.Revision) bool {
	current, ok := Current(revisions)
	return ok && current.HasFeedback()
}

// OpenRevision returns the current revision when it is still awaiting feedback.
func OpenRevision(revisions []domain.Revision) (domain.Revision, bool) {
	current, ok := Current(revisions)
	if !ok || current.HasFeedback() {
		return domain.Revision{}, false
	}
	return current, true
}
