package chat

import (
	"strings"
	"time"
)

// ProfileReconciler merges a normalized candidate into the persisted profile
// column by column, like COALESCE(candidate, persisted). A non-empty
// candidate value overwrites; an empty one never erases.
type ProfileReconciler struct{}

// Reconcile returns the merged profile and whether it differs from persisted.
// A nil persisted profile means nothing is stored yet.
func (ProfileReconciler) Reconcile(candidate ChildProfile, persisted *ChildProfile) (ChildProfile, bool) {
	base := ChildProfile{}
	if persisted != nil {
		base = *persisted
	}

	merged := ChildProfile{
		Name:          coalesceText(candidate.Name, base.Name),
		DateOfBirth:   coalesceDate(candidate.DateOfBirth, base.DateOfBirth),
		Gender:        base.Gender,
		FreeTextNotes: coalesceText(candidate.FreeTextNotes, base.FreeTextNotes),
	}
	if candidate.HasGender() {
		merged.Gender = candidate.Gender
	}

	if persisted == nil {
		return merged, !merged.IsEmpty()
	}
	return merged, !sameProfile(merged, base)
}

// CandidateProfile resolves the temporal part of a candidate into a date of
// birth and returns the profile shape the reconciler consumes.
func CandidateProfile(candidate ExtractionCandidate, normalizer *AgeNormalizer) ChildProfile {
	profile := ChildProfile{
		Name:   strings.TrimSpace(candidate.Name),
		Gender: candidate.Gender,
	}
	if normalizer != nil {
		if dob, ok := normalizer.Resolve(candidate); ok {
			profile.DateOfBirth = dob
		}
	}
	return profile
}

func coalesceText(candidate, persisted string) string {
	if value := strings.TrimSpace(candidate); value != "" {
		return value
	}
	return persisted
}

func coalesceDate(candidate, persisted time.Time) time.Time {
	if !candidate.IsZero() {
		return calendarDate(candidate)
	}
	return persisted
}

func sameProfile(a, b ChildProfile) bool {
	return a.Name == b.Name &&
		a.Gender == b.Gender &&
		a.FreeTextNotes == b.FreeTextNotes &&
		calendarDate(a.DateOfBirth).Equal(calendarDate(b.DateOfBirth))
}
