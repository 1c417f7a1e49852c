package chat

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type ageUnit int

const (
	unitNone ageUnit = iota
	unitYears
	unitMonths
	unitDays
)

// maxBareAgeYears bounds how large a unit-less number may be and still be
// read as a child's age in years.
const maxBareAgeYears = 25

var (
	agePhrasePattern = regexp.MustCompile(`(?i)(\d{1,3})\s*-?\s*(years?|yrs?|周岁|岁|歲|months?|mos?|个月|個月|days?|天)`)
	integerPattern   = regexp.MustCompile(`\d+`)
	decimalPattern   = regexp.MustCompile(`\d[.,]\d`)
	// Words allowed around a bare number, e.g. "age is 3" or "今年3".
	bareAgeFillerPattern = regexp.MustCompile(`(?i)\b(?:age|aged|is|of|old|about|around)\b|今年|年龄|是|大约|大概`)
	dateSeparatorChars   = "-/.年月"
)

// AgeNormalizer turns raw "how old / when born" text into a canonical date of
// birth. Relative readings are anchored on Today().
type AgeNormalizer struct {
	now func() time.Time
	loc *time.Location
}

func NewAgeNormalizer(now func() time.Time, loc *time.Location) *AgeNormalizer {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AgeNormalizer{now: now, loc: loc}
}

// Today is the current calendar date in the configured location, expressed
// as UTC midnight so it compares cleanly with stored dates.
func (n *AgeNormalizer) Today() time.Time {
	return calendarDate(n.now().In(n.loc))
}

// Normalize resolves raw temporal text to a date of birth. It never fails
// loudly: text it cannot read yields ok=false.
//
// An age in years is a lossy placeholder: the birthday is assumed to fall on
// today's month and day. Months keep today's day-of-month where the target
// month has it and clamp to the month's last day otherwise. Days are exact.
// Compound phrases ("2 years and 3 months", "2岁3个月") add their parts;
// fractional amounts are rejected.
func (n *AgeNormalizer) Normalize(raw string) (time.Time, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return time.Time{}, false
	}
	if strings.ContainsAny(text, dateSeparatorChars) {
		if date, ok := ParseAmbiguousDate(text); ok {
			return date, true
		}
	}

	span, ok := parseAgePhrase(text)
	if !ok {
		return time.Time{}, false
	}
	dob := subtractMonths(n.Today(), span.years*12+span.months)
	if span.days > 0 {
		dob = dob.AddDate(0, 0, -span.days)
	}
	return dob, true
}

// Resolve picks the canonical date of birth for a candidate: an explicit date
// wins over any reading of the raw temporal text.
func (n *AgeNormalizer) Resolve(candidate ExtractionCandidate) (time.Time, bool) {
	if !candidate.ExplicitDate.IsZero() {
		return calendarDate(candidate.ExplicitDate), true
	}
	return n.Normalize(candidate.RawTemporalText)
}

// Age computes the exact calendar age for dob as of today.
func (n *AgeNormalizer) Age(dob time.Time) NormalizedAge {
	return AgeFromDate(dob, n.Today())
}

// ageSpan is an age phrase split by unit.
type ageSpan struct {
	years, months, days int
}

func parseAgePhrase(text string) (ageSpan, bool) {
	if decimalPattern.MatchString(text) {
		return ageSpan{}, false
	}
	numbers := integerPattern.FindAllString(text, -1)

	if matches := agePhrasePattern.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		// Every number must carry a unit, and each unit may appear once.
		if len(matches) != len(numbers) {
			return ageSpan{}, false
		}
		var span ageSpan
		seen := make(map[ageUnit]bool, len(matches))
		for _, match := range matches {
			value, err := strconv.Atoi(match[1])
			unit := unitFromToken(match[2])
			if err != nil || unit == unitNone || seen[unit] {
				return ageSpan{}, false
			}
			seen[unit] = true
			switch unit {
			case unitYears:
				span.years = value
			case unitMonths:
				span.months = value
			case unitDays:
				span.days = value
			}
		}
		return span, true
	}

	if len(numbers) != 1 {
		return ageSpan{}, false
	}
	residue := integerPattern.ReplaceAllString(text, "")
	residue = bareAgeFillerPattern.ReplaceAllString(residue, "")
	residue = strings.TrimFunc(residue, func(r rune) bool {
		return strings.ContainsRune(" \t\n:：,，.。!?！？~", r)
	})
	if residue != "" {
		return ageSpan{}, false
	}
	value, err := strconv.Atoi(numbers[0])
	if err != nil || value < 0 || value > maxBareAgeYears {
		return ageSpan{}, false
	}
	return ageSpan{years: value}, true
}

func unitFromToken(token string) ageUnit {
	lowered := strings.ToLower(strings.TrimSpace(token))
	switch {
	case strings.HasPrefix(lowered, "y"), lowered == "岁", lowered == "周岁", lowered == "歲":
		return unitYears
	case strings.HasPrefix(lowered, "mo"), lowered == "个月", lowered == "個月":
		return unitMonths
	case strings.HasPrefix(lowered, "d"), lowered == "天":
		return unitDays
	}
	return unitNone
}

// ParseAmbiguousDate reads YYYY-MM-DD, YYYY/MM/DD, MM/DD/YYYY and DD/MM/YYYY
// (any of "-", "/", "." as separator, plus 2020年3月5日). The year is the only
// four digit component; with zero or two such components the text is
// rejected. When the year comes last, a first component above 12 means
// DD/MM, otherwise MM/DD is assumed.
func ParseAmbiguousDate(text string) (time.Time, bool) {
	normalized := strings.TrimSpace(text)
	normalized = strings.NewReplacer("年", "-", "月", "-", "日", "", "号", "").Replace(normalized)
	parts := strings.FieldsFunc(normalized, func(r rune) bool {
		return r == '-' || r == '/' || r == '.'
	})
	if len(parts) != 3 {
		return time.Time{}, false
	}

	values := make([]int, 3)
	yearIndex := -1
	for idx, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || len(part) > 4 || len(part) == 3 {
			return time.Time{}, false
		}
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 {
			return time.Time{}, false
		}
		if len(part) == 4 {
			if yearIndex >= 0 {
				return time.Time{}, false
			}
			yearIndex = idx
		}
		values[idx] = value
	}

	switch yearIndex {
	case 0:
		return buildCalendarDate(values[0], values[1], values[2])
	case 2:
		first, second := values[0], values[1]
		if first > 12 {
			return buildCalendarDate(values[2], second, first)
		}
		return buildCalendarDate(values[2], first, second)
	default:
		return time.Time{}, false
	}
}

func buildCalendarDate(year, month, day int) (time.Time, bool) {
	if year < 1900 || year > 2100 {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	value := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if value.Year() != year || int(value.Month()) != month || value.Day() != day {
		return time.Time{}, false
	}
	return value, true
}

// AgeFromDate uses calendar arithmetic: a negative day difference borrows the
// length of the month before today's month, a negative month difference
// borrows twelve months. A date of birth after today clamps to zero.
func AgeFromDate(dob, today time.Time) NormalizedAge {
	birth := calendarDate(dob)
	current := calendarDate(today)
	result := NormalizedAge{DateOfBirth: birth}
	if birth.IsZero() || current.Before(birth) {
		return result
	}

	years := current.Year() - birth.Year()
	months := int(current.Month()) - int(birth.Month())
	days := current.Day() - birth.Day()

	borrowYear, borrowMonth := current.Year(), current.Month()
	for days < 0 {
		borrowMonth--
		if borrowMonth < time.January {
			borrowMonth = time.December
			borrowYear--
		}
		days += daysInMonth(borrowYear, borrowMonth)
		months--
	}
	for months < 0 {
		months += 12
		years--
	}
	if years < 0 {
		return result
	}

	result.Years = years
	result.Months = months
	result.Days = days
	return result
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func subtractMonths(date time.Time, months int) time.Time {
	total := date.Year()*12 + int(date.Month()) - 1 - months
	year := total / 12
	month := time.Month(total%12 + 1)
	day := date.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
