package chat

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one utterance in a family conversation. Turns are never mutated
// after they are appended to a session.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Gender string

const (
	GenderUnknown Gender = ""
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
)

// NormalizeGender maps stored or user supplied labels onto the two values the
// engine tracks. Anything else is treated as unknown.
func NormalizeGender(input string) Gender {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "male", "m", "boy", "男", "男孩":
		return GenderMale
	case "female", "f", "girl", "女", "女孩":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// ChildProfile is the durable, per-family view of the child. Every field is
// independently optional; a zero DateOfBirth means unknown.
type ChildProfile struct {
	Name          string
	DateOfBirth   time.Time
	Gender        Gender
	FreeTextNotes string
}

func (p ChildProfile) HasName() bool {
	return strings.TrimSpace(p.Name) != ""
}

func (p ChildProfile) HasDateOfBirth() bool {
	return !p.DateOfBirth.IsZero()
}

func (p ChildProfile) HasGender() bool {
	return p.Gender != GenderUnknown
}

func (p ChildProfile) IsEmpty() bool {
	return !p.HasName() && !p.HasDateOfBirth() && !p.HasGender() && strings.TrimSpace(p.FreeTextNotes) == ""
}

// ExtractionCandidate is the best-effort reading of the whole conversation.
// It is transient: callers run it through the AgeNormalizer and the
// ProfileReconciler before anything is persisted.
type ExtractionCandidate struct {
	Name            string
	RawTemporalText string
	ExplicitDate    time.Time
	Gender          Gender
}

func (c ExtractionCandidate) IsEmpty() bool {
	return strings.TrimSpace(c.Name) == "" &&
		strings.TrimSpace(c.RawTemporalText) == "" &&
		c.ExplicitDate.IsZero() &&
		c.Gender == GenderUnknown
}

// NormalizedAge is always derived from DateOfBirth, never stored on its own.
type NormalizedAge struct {
	Years       int
	Months      int
	Days        int
	DateOfBirth time.Time
}

// Doctor is one entry of the recommendable doctor directory.
type Doctor struct {
	Name      string `json:"name" yaml:"name"`
	Specialty string `json:"specialty" yaml:"specialty"`
	Location  string `json:"location" yaml:"location"`
}

func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
