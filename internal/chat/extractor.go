package chat

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxNameRunes = 30

var latinNameStopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "so": {}, "if": {},
	"my": {}, "his": {}, "her": {}, "our": {}, "their": {}, "your": {},
	"he": {}, "she": {}, "it": {}, "they": {}, "this": {}, "that": {}, "who": {}, "what": {},
	"is": {}, "was": {}, "has": {}, "had": {}, "not": {}, "very": {}, "also": {}, "just": {}, "only": {}, "now": {},
	"currently": {}, "still": {}, "really": {}, "about": {}, "around": {}, "almost": {}, "nearly": {},
	"sick": {}, "ill": {}, "unwell": {}, "fine": {}, "ok": {}, "okay": {}, "well": {}, "better": {}, "worse": {},
	"feeling": {}, "having": {}, "getting": {}, "coughing": {}, "sneezing": {}, "crying": {}, "running": {},
	"sleeping": {}, "vomiting": {}, "born": {}, "boy": {}, "girl": {}, "male": {}, "female": {},
	"years": {}, "months": {}, "days": {}, "old": {}, "here": {}, "there": {}, "with": {}, "in": {}, "at": {},
	"today": {}, "tonight": {}, "tired": {}, "sleepy": {}, "hungry": {}, "thirsty": {}, "feverish": {}, "teething": {},
	"fussy": {}, "cranky": {}, "grumpy": {}, "sad": {}, "happy": {}, "upset": {}, "scared": {}, "bored": {},
	"awake": {}, "asleep": {}, "hot": {}, "warm": {}, "cold": {}, "sore": {}, "weak": {}, "pale": {},
	"congested": {}, "stuffy": {}, "allergic": {}, "constipated": {}, "dehydrated": {}, "sweaty": {},
}

var hanNameStopWords = map[string]struct{}{
	"他": {}, "她": {}, "它": {}, "我": {}, "你": {}, "您": {}, "什么": {}, "啥": {}, "谁": {}, "和": {}, "与": {},
	"孩子": {}, "宝宝": {}, "宝贝": {}, "儿子": {}, "女儿": {}, "小孩": {}, "男孩": {}, "女孩": {},
	"就": {}, "也": {}, "还": {}, "都": {}, "其实": {}, "确实": {}, "真的": {},
}

var (
	hanNamePrefixes   = []string{"我们家的", "我们家", "我家的", "我家", "我的", "叫做", "叫"}
	hanNameSuffixes   = []string{"了", "呢", "啊", "吧", "呀", "的"}
	// Pronouns and adverbs that can sit in front of 是 in "X是我的儿子".
	hanLeadingFillers = []string{"其实", "确实", "真的", "他", "她", "它", "我", "你", "您", "就", "也", "还", "都"}
)

// EntityExtractor scans the whole accumulated dialogue on every call, so a
// fact missed earlier is still picked up later and repeated calls over the
// same history give the same candidate.
type EntityExtractor struct {
	rules []Rule
}

func NewEntityExtractor(rules ...Rule) *EntityExtractor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &EntityExtractor{rules: rules}
}

func (e *EntityExtractor) Extract(turns []Turn) ExtractionCandidate {
	return e.ExtractText(JoinTurns(turns))
}

// ExtractText applies the rules in order. For name and temporal fields the
// first rule that yields a usable value wins; a name that cleans down to
// nothing lets the next name rule try. Gender is a keyword presence test and
// male wins when both sets hit.
func (e *EntityExtractor) ExtractText(text string) ExtractionCandidate {
	candidate := ExtractionCandidate{}
	if strings.TrimSpace(text) == "" {
		return candidate
	}

	hits := map[Gender]bool{}
	firstHit := GenderUnknown
	for _, rule := range e.rules {
		switch r := rule.(type) {
		case NamePattern:
			if candidate.Name != "" {
				continue
			}
			if raw, ok := r.Match(text); ok {
				candidate.Name = cleanName(raw)
			}
		case DatePattern:
			if candidate.RawTemporalText != "" {
				continue
			}
			if raw, ok := r.Match(text); ok {
				candidate.RawTemporalText = raw
			}
		case AgePattern:
			if candidate.RawTemporalText != "" {
				continue
			}
			if raw, ok := r.Match(text); ok {
				candidate.RawTemporalText = raw
			}
		case GenderKeywordSet:
			if r.Gender == GenderUnknown || !r.Matches(text) {
				continue
			}
			hits[r.Gender] = true
			if firstHit == GenderUnknown {
				firstHit = r.Gender
			}
		}
	}

	if raw := candidate.RawTemporalText; strings.ContainsAny(raw, dateSeparatorChars) {
		if date, ok := ParseAmbiguousDate(raw); ok {
			candidate.ExplicitDate = date
		}
	}

	switch {
	case hits[GenderMale]:
		candidate.Gender = GenderMale
	default:
		candidate.Gender = firstHit
	}
	return candidate
}

// JoinTurns concatenates turn contents of both roles, whitespace separated.
func JoinTurns(turns []Turn) string {
	parts := make([]string, 0, len(turns))
	for _, turn := range turns {
		if content := strings.TrimSpace(turn.Content); content != "" {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, " ")
}

func cleanName(raw string) string {
	value := strings.TrimFunc(strings.TrimSpace(raw), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	if value == "" {
		return ""
	}

	if hasHanText(value) {
		value = trimHanLeadingFillers(trimHanAffixes(value))
		if _, stop := hanNameStopWords[value]; stop {
			return ""
		}
	} else {
		kept := make([]string, 0, 2)
		for _, token := range strings.Fields(value) {
			if _, stop := latinNameStopWords[strings.ToLower(token)]; stop {
				continue
			}
			kept = append(kept, token)
		}
		value = strings.Join(kept, " ")
	}

	if value == "" || isAllDigits(value) || utf8.RuneCountInString(value) > maxNameRunes {
		return ""
	}
	if hasHanText(value) {
		return value
	}
	return capitalizeFirst(value)
}

func trimHanAffixes(value string) string {
	for _, prefix := range hanNamePrefixes {
		if strings.HasPrefix(value, prefix) && len(value) > len(prefix) {
			value = strings.TrimPrefix(value, prefix)
			break
		}
	}
	for _, suffix := range hanNameSuffixes {
		if strings.HasSuffix(value, suffix) && len(value) > len(suffix) {
			value = strings.TrimSuffix(value, suffix)
			break
		}
	}
	return value
}

// trimHanLeadingFillers strips filler words off the front until none is left;
// a value made only of fillers comes back empty.
func trimHanLeadingFillers(value string) string {
	for {
		trimmed := value
		for _, filler := range hanLeadingFillers {
			if strings.HasPrefix(trimmed, filler) {
				trimmed = strings.TrimPrefix(trimmed, filler)
				break
			}
		}
		if trimmed == value {
			return value
		}
		value = trimmed
	}
}

func capitalizeFirst(value string) string {
	lowered := strings.ToLower(value)
	first, size := utf8.DecodeRuneInString(lowered)
	if first == utf8.RuneError {
		return lowered
	}
	return string(unicode.ToUpper(first)) + lowered[size:]
}

func isAllDigits(value string) bool {
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return value != ""
}

func hasHanText(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
