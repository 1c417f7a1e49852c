package chat

import (
	"regexp"
	"strings"
	"unicode"
)

type RuleKind string

const (
	RuleKindName   RuleKind = "name"
	RuleKindDate   RuleKind = "date"
	RuleKindAge    RuleKind = "age"
	RuleKindGender RuleKind = "gender"
)

// Rule is one extraction rule. The concrete variants are NamePattern,
// DatePattern, AgePattern and GenderKeywordSet; the extractor walks an
// ordered []Rule and the first match per field wins.
type Rule interface {
	Kind() RuleKind
	Label() string
}

// NamePattern captures a candidate child name in group 1.
type NamePattern struct {
	Name string
	Expr *regexp.Regexp
}

func (NamePattern) Kind() RuleKind  { return RuleKindName }
func (r NamePattern) Label() string { return r.Name }

func (r NamePattern) Match(text string) (string, bool) {
	return firstGroup(r.Expr, text)
}

// DatePattern captures an explicit calendar date in group 1.
type DatePattern struct {
	Name string
	Expr *regexp.Regexp
}

func (DatePattern) Kind() RuleKind  { return RuleKindDate }
func (r DatePattern) Label() string { return r.Name }

func (r DatePattern) Match(text string) (string, bool) {
	return firstGroup(r.Expr, text)
}

// AgePattern captures an age phrase ("3 years", "6个月", or a bare number)
// in group 1.
type AgePattern struct {
	Name string
	Expr *regexp.Regexp
}

func (AgePattern) Kind() RuleKind  { return RuleKindAge }
func (r AgePattern) Label() string { return r.Name }

func (r AgePattern) Match(text string) (string, bool) {
	return firstGroup(r.Expr, text)
}

// GenderKeywordSet is a presence test: Latin keywords match on word
// boundaries (so "female" never counts as "male"), CJK keywords match as
// substrings.
type GenderKeywordSet struct {
	Name     string
	Gender   Gender
	Keywords []string
	latin    *regexp.Regexp
	cjk      []string
}

func NewGenderKeywordSet(name string, gender Gender, keywords ...string) GenderKeywordSet {
	set := GenderKeywordSet{Name: name, Gender: gender, Keywords: keywords}
	latin := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		if isLatinWord(keyword) {
			latin = append(latin, regexp.QuoteMeta(strings.ToLower(keyword)))
			continue
		}
		set.cjk = append(set.cjk, keyword)
	}
	if len(latin) > 0 {
		set.latin = regexp.MustCompile(`(?i)\b(?:` + strings.Join(latin, "|") + `)\b`)
	}
	return set
}

func (GenderKeywordSet) Kind() RuleKind  { return RuleKindGender }
func (r GenderKeywordSet) Label() string { return r.Name }

func (r GenderKeywordSet) Matches(text string) bool {
	if r.latin != nil && r.latin.MatchString(text) {
		return true
	}
	for _, keyword := range r.cjk {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

const (
	childNouns     = `(?:child|kid|baby|son|daughter)`
	latinName      = `([a-z][a-z'-]*)`
	zhChildNouns   = `(?:孩子|宝宝|宝贝|儿子|女儿|小孩|娃)`
	zhName         = `([A-Za-z][A-Za-z'-]*|\p{Han}{1,4}?)`
	zhNameEnd      = `(?:[\s，。,.!！?？、；;：:]|$|今年|现在|已经|是|的|岁|有)`
	zhBoundary     = `(?:^|[\s，。,.!！?？、；;])`
	numericDate    = `\d{4}[-/.]\d{1,2}[-/.]\d{1,2}|\d{1,2}[-/.]\d{1,2}[-/.]\d{4}`
	zhNumericDate  = `\d{4}\s*[-/.年]\s*\d{1,2}\s*[-/.月]\s*\d{1,2}\s*[日号]?`
	// An age number must not be part of a decimal or a longer number.
	ageNumberStart = `(?:^|[^\d.])`
	ageNumberEnd   = `(?:$|[^\d.]|\.(?:$|\D))`
	enYears        = `(?:years?|yrs?)`
	enMonths       = `(?:months?|mos?)`
	zhYears        = `(?:周岁|岁|歲)`
	zhMonths       = `(?:个月|個月)`
)

// DefaultRules is the production rule list in priority order.
func DefaultRules() []Rule {
	return []Rule{
		NamePattern{Name: "en_possessive_name", Expr: regexp.MustCompile(`(?i)\b` + childNouns + `(?:'s|s)?\s+name\s+is\s+` + latinName)},
		NamePattern{Name: "en_child_named", Expr: regexp.MustCompile(`(?i)\b` + childNouns + `\s+(?:is\s+)?(?:named|called)\s+` + latinName)},
		NamePattern{Name: "en_name_is", Expr: regexp.MustCompile(`(?i)\b(?:name\s+is|named|called)\s+` + latinName)},
		NamePattern{Name: "en_reversed", Expr: regexp.MustCompile(`(?i)\b` + latinName + `\s+is\s+my\s+` + childNouns + `\b`)},
		NamePattern{Name: "en_child_is", Expr: regexp.MustCompile(`(?i)\b` + childNouns + `\s+is\s+` + latinName)},
		NamePattern{Name: "zh_child_name_is", Expr: regexp.MustCompile(zhChildNouns + `的?(?:名字|名)(?:是|叫)\s*` + zhName + zhNameEnd)},
		NamePattern{Name: "zh_child_called", Expr: regexp.MustCompile(zhChildNouns + `叫(?:做)?\s*` + zhName + zhNameEnd)},
		NamePattern{Name: "zh_name_is", Expr: regexp.MustCompile(`(?:名字是|名字叫|叫做)\s*` + zhName + zhNameEnd)},
		NamePattern{Name: "zh_reversed", Expr: regexp.MustCompile(zhBoundary + `(\p{Han}{2,4})是我的?` + zhChildNouns)},

		DatePattern{Name: "en_birth_date", Expr: regexp.MustCompile(`(?i)\b(?:born|birthday|birth\s*date|date\s+of\s+birth|dob)\b[^0-9\n]{0,16}?(` + numericDate + `)`)},
		DatePattern{Name: "zh_birth_date", Expr: regexp.MustCompile(`(?:出生日期|出生于|出生在|出生|生日)[^0-9]{0,6}?(` + zhNumericDate + `)`)},
		DatePattern{Name: "zh_full_date", Expr: regexp.MustCompile(`(\d{4}年\d{1,2}月\d{1,2}[日号]?)`)},
		DatePattern{Name: "bare_date", Expr: regexp.MustCompile(`\b(` + numericDate + `)\b`)},

		AgePattern{Name: "en_compound", Expr: regexp.MustCompile(`(?i)` + ageNumberStart + `(\d{1,3}[\s-]*` + enYears + `(?:\s*,\s*|\s+and\s+|\s+)\d{1,2}[\s-]*` + enMonths + `)\b`)},
		AgePattern{Name: "en_unit_old", Expr: regexp.MustCompile(`(?i)` + ageNumberStart + `(\d{1,3}[\s-]*(?:years?|yrs?|months?|mos?|days?))[\s-]*old\b`)},
		AgePattern{Name: "en_age_is", Expr: regexp.MustCompile(`(?i)\b(?:age|aged)\s*(?:is|of|:)?\s*(\d{1,3}(?:\s*(?:years?|months?|days?))?)` + ageNumberEnd)},
		AgePattern{Name: "zh_compound", Expr: regexp.MustCompile(ageNumberStart + `(\d{1,3}\s*` + zhYears + `\s*(?:零|又)?\s*\d{1,2}\s*` + zhMonths + `)`)},
		AgePattern{Name: "zh_years", Expr: regexp.MustCompile(ageNumberStart + `(\d{1,3}\s*` + zhYears + `)`)},
		AgePattern{Name: "zh_months", Expr: regexp.MustCompile(ageNumberStart + `(\d{1,3}\s*` + zhMonths + `)`)},
		AgePattern{Name: "zh_days", Expr: regexp.MustCompile(ageNumberStart + `(\d{1,3}\s*天)大`)},
		AgePattern{Name: "zh_born_days", Expr: regexp.MustCompile(`出生了?(\d{1,3}\s*天)`)},
		AgePattern{Name: "zh_bare_age", Expr: regexp.MustCompile(`(?:今年|年龄是?)\s*(\d{1,2})` + ageNumberEnd)},

		NewGenderKeywordSet("male", GenderMale, "boy", "son", "male", "男孩", "儿子", "男"),
		NewGenderKeywordSet("female", GenderFemale, "girl", "daughter", "female", "女孩", "女儿", "女"),
	}
}

func firstGroup(expr *regexp.Regexp, text string) (string, bool) {
	if expr == nil {
		return "", false
	}
	match := expr.FindStringSubmatch(text)
	if len(match) < 2 {
		return "", false
	}
	value := strings.TrimSpace(match[1])
	if value == "" {
		return "", false
	}
	return value, true
}

func isLatinWord(value string) bool {
	for _, r := range value {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
