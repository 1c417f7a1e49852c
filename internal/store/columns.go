package store

import (
	"strings"
	"time"

	"parentdoctor/backend/internal/chat"
)

// profileColumns maps a profile onto nullable columns. Empty fields become
// NULL so COALESCE keeps the stored value.
func profileColumns(profile chat.ChildProfile) (name, dob, gender, notes any) {
	name = nullableString(profile.Name)
	gender = nullableString(string(profile.Gender))
	notes = nullableString(profile.FreeTextNotes)
	if profile.HasDateOfBirth() {
		value := time.Date(profile.DateOfBirth.Year(), profile.DateOfBirth.Month(), profile.DateOfBirth.Day(), 0, 0, 0, 0, time.UTC)
		dob = value
	}
	return name, dob, gender, notes
}

func profileFromColumns(name string, dob *time.Time, gender, notes string) chat.ChildProfile {
	profile := chat.ChildProfile{
		Name:          strings.TrimSpace(name),
		Gender:        chat.NormalizeGender(gender),
		FreeTextNotes: strings.TrimSpace(notes),
	}
	if dob != nil && !dob.IsZero() {
		profile.DateOfBirth = time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	}
	return profile
}

func nullableString(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func doctorDisplayName(firstName, lastName string) string {
	full := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	if full == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(full), "dr.") || strings.HasPrefix(strings.ToLower(full), "dr ") {
		return full
	}
	return "Dr. " + full
}
