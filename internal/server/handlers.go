package server

import (
	"strings"
	"time"

	"parentdoctor/backend/internal/chat"
)

type chatMessageRequest struct {
	Message string `json:"message"`
}

type extractedInfo struct {
	Name            string `json:"name,omitempty"`
	RawTemporalText string `json:"raw_temporal_text,omitempty"`
	DateOfBirth     string `json:"date_of_birth,omitempty"`
	Gender          string `json:"gender,omitempty"`
}

type chatMessageResponse struct {
	Reply     string         `json:"reply"`
	Extracted *extractedInfo `json:"extracted"`
	RequestID string         `json:"request_id"`
}

type childProfileBody struct {
	Name        *string `json:"name"`
	DateOfBirth *string `json:"date_of_birth"`
	Gender      *string `json:"gender"`
	Notes       *string `json:"notes"`
}

type childAgeBody struct {
	Years  int `json:"years"`
	Months int `json:"months"`
	Days   int `json:"days"`
}

type childProfileResponse struct {
	Profile *childProfileBody `json:"profile"`
	Age     *childAgeBody     `json:"age"`
	AsOf    string            `json:"as_of"`
}

func toExtractedInfo(candidate *chat.ExtractionCandidate) *extractedInfo {
	if candidate == nil || candidate.IsEmpty() {
		return nil
	}
	info := &extractedInfo{
		Name:            strings.TrimSpace(candidate.Name),
		RawTemporalText: strings.TrimSpace(candidate.RawTemporalText),
		Gender:          string(candidate.Gender),
	}
	if !candidate.ExplicitDate.IsZero() {
		info.DateOfBirth = candidate.ExplicitDate.Format(time.DateOnly)
	}
	return info
}

func toChildProfileResponse(view chat.ProfileView, today time.Time) childProfileResponse {
	response := childProfileResponse{AsOf: today.Format(time.DateOnly)}
	if view.Profile != nil && !view.Profile.IsEmpty() {
		profile := view.Profile
		body := &childProfileBody{
			Name:  optionalString(profile.Name),
			Notes: optionalString(profile.FreeTextNotes),
		}
		if profile.HasGender() {
			body.Gender = optionalString(string(profile.Gender))
		}
		if profile.HasDateOfBirth() {
			body.DateOfBirth = optionalString(profile.DateOfBirth.Format(time.DateOnly))
		}
		response.Profile = body
	}
	if view.Age != nil {
		response.Age = &childAgeBody{Years: view.Age.Years, Months: view.Age.Months, Days: view.Age.Days}
	}
	return response
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
