package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultCompletionTimeout = 20 * time.Second
	DefaultDoctorLimit       = 3

	PathCompletion = "completion"
	PathFallback   = "fallback"
)

// Completer is the external completion service. Implementations report
// failures wrapped around ErrUnavailable, ErrTransport or ErrMalformedResponse.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []Turn) (string, error)
}

// ReplyInput is the snapshot a reply is generated from.
type ReplyInput struct {
	// Profile is nil when nothing is persisted for the family yet.
	Profile *ChildProfile
	Doctors []Doctor
	Window  []Turn
}

type Reply struct {
	Text string
	Path string
	// Err is the absorbed completion failure when Path is PathFallback.
	Err error
}

type ResponseGenerator struct {
	completer   Completer
	timeout     time.Duration
	normalizer  *AgeNormalizer
	doctorLimit int
}

type ResponseGeneratorOption func(*ResponseGenerator)

func WithCompletionTimeout(timeout time.Duration) ResponseGeneratorOption {
	return func(g *ResponseGenerator) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

func WithDoctorLimit(limit int) ResponseGeneratorOption {
	return func(g *ResponseGenerator) {
		if limit > 0 {
			g.doctorLimit = limit
		}
	}
}

// NewResponseGenerator accepts a nil completer; every reply then comes from
// the fallback templates.
func NewResponseGenerator(completer Completer, normalizer *AgeNormalizer, opts ...ResponseGeneratorOption) *ResponseGenerator {
	if normalizer == nil {
		normalizer = NewAgeNormalizer(nil, nil)
	}
	g := &ResponseGenerator{
		completer:   completer,
		timeout:     DefaultCompletionTimeout,
		normalizer:  normalizer,
		doctorLimit: DefaultDoctorLimit,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate never fails. Any completion problem, including a hung call past
// the timeout, ends in the deterministic fallback reply.
func (g *ResponseGenerator) Generate(ctx context.Context, in ReplyInput) Reply {
	text, err := g.complete(ctx, in)
	if err == nil {
		return Reply{Text: text, Path: PathCompletion}
	}

	text = strings.TrimSpace(g.Fallback(in))
	if text == "" {
		text = genericApology(latestUserText(in.Window))
	}
	return Reply{Text: text, Path: PathFallback, Err: err}
}

func (g *ResponseGenerator) complete(ctx context.Context, in ReplyInput) (string, error) {
	if g.completer == nil {
		return "", fmt.Errorf("%w: no completion service configured", ErrUnavailable)
	}
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.completer.Complete(callCtx, g.SystemPrompt(in.Profile, in.Doctors), in.Window)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrMalformedResponse)
	}
	return text, nil
}

// SystemPrompt composes the instructions, the known profile fields and the
// doctor directory.
func (g *ResponseGenerator) SystemPrompt(profile *ChildProfile, doctors []Doctor) string {
	var b strings.Builder
	b.WriteString("You are a helpful pediatric health assistant for the ParentDoctor app. Your role is to:\n")
	b.WriteString("1. Provide general health advice and guidance to parents\n")
	b.WriteString("2. Ask questions to gather information about their child when needed\n")
	b.WriteString("3. Remember child information shared in the conversation\n\n")
	b.WriteString("Before giving specific health advice, make sure you know the child's name, ")
	b.WriteString("date of birth (or age), gender, and the current symptoms or concerns.\n")
	b.WriteString("Always remind parents to consult a doctor for serious concerns.\n\n")
	b.WriteString("Current child information on file:")

	if profile == nil || profile.IsEmpty() {
		b.WriteString("\nNo child information on file yet. Please ask the parent for it.")
	} else {
		dob := "Not provided"
		if profile.HasDateOfBirth() {
			age := g.normalizer.Age(profile.DateOfBirth)
			dob = fmt.Sprintf("%s (%s)", profile.DateOfBirth.Format(time.DateOnly), compactAge(age))
		}
		fmt.Fprintf(&b, "\n- Name: %s", orDefault(profile.Name, "Not provided"))
		fmt.Fprintf(&b, "\n- Date of Birth: %s", dob)
		fmt.Fprintf(&b, "\n- Gender: %s", orDefault(string(profile.Gender), "Not provided"))
		fmt.Fprintf(&b, "\n- Medical Record: %s", orDefault(profile.FreeTextNotes, "None"))
	}

	if listed := g.limitDoctors(doctors); len(listed) > 0 {
		b.WriteString("\n\nDoctors you may recommend when the parent asks or symptoms warrant it:")
		for _, doctor := range listed {
			fmt.Fprintf(&b, "\n- %s", describeDoctor(doctor))
		}
	}

	b.WriteString("\n\nKeep your responses concise, friendly, and helpful. Ask one question at a time.")
	return b.String()
}

// Fallback renders the template for the profile's dialogue state, in Chinese
// when the latest user turn is written in Han script.
func (g *ResponseGenerator) Fallback(in ReplyInput) string {
	profile := ChildProfile{}
	if in.Profile != nil {
		profile = *in.Profile
	}
	latest := latestUserText(in.Window)
	lang := languageEnglish
	if hasHanText(latest) {
		lang = languageChinese
	}
	tpl := fallbackTemplates[lang]

	switch ResolveDialogueState(profile) {
	case StateNeedName:
		return tpl.needName
	case StateNeedAge:
		return fmt.Sprintf(tpl.needAge, profile.Name)
	case StateNeedGender:
		return fmt.Sprintf(tpl.needGender, profile.Name)
	}

	subject := profile.Name
	if profile.HasDateOfBirth() {
		subject = fmt.Sprintf("%s (%s)", profile.Name, compactAge(g.normalizer.Age(profile.DateOfBirth)))
	}

	lowered := strings.ToLower(latest)
	var body string
	symptom := true
	switch {
	case containsAnyKeyword(lowered, "fever", "发烧", "发热"):
		body = fmt.Sprintf(tpl.fever, profile.Name)
	case containsAnyKeyword(lowered, "cough", "咳嗽"):
		body = fmt.Sprintf(tpl.cough, profile.Name)
	default:
		symptom = false
		body = fmt.Sprintf(tpl.general, subject)
	}

	if symptom || containsAnyKeyword(lowered, "doctor", "pediatrician", "connect", "推荐", "医生") {
		if snippet := g.doctorSnippet(in.Doctors, tpl); snippet != "" {
			body += "\n\n" + snippet
		}
	}
	return body
}

func (g *ResponseGenerator) doctorSnippet(doctors []Doctor, tpl fallbackTemplate) string {
	listed := g.limitDoctors(doctors)
	if len(listed) == 0 {
		return ""
	}
	lines := make([]string, 0, len(listed)+1)
	lines = append(lines, tpl.doctorsHeader)
	for _, doctor := range listed {
		lines = append(lines, "• "+describeDoctor(doctor))
	}
	return strings.Join(lines, "\n")
}

func (g *ResponseGenerator) limitDoctors(doctors []Doctor) []Doctor {
	listed := make([]Doctor, 0, len(doctors))
	for _, doctor := range doctors {
		if strings.TrimSpace(doctor.Name) == "" {
			continue
		}
		listed = append(listed, doctor)
		if len(listed) == g.doctorLimit {
			break
		}
	}
	return listed
}

func describeDoctor(doctor Doctor) string {
	details := make([]string, 0, 2)
	if value := strings.TrimSpace(doctor.Specialty); value != "" {
		details = append(details, value)
	}
	if value := strings.TrimSpace(doctor.Location); value != "" {
		details = append(details, value)
	}
	if len(details) == 0 {
		return strings.TrimSpace(doctor.Name)
	}
	return fmt.Sprintf("%s (%s)", strings.TrimSpace(doctor.Name), strings.Join(details, ", "))
}

// compactAge renders an age without unit words so a stored reply never reads
// back as an age statement during extraction.
func compactAge(age NormalizedAge) string {
	switch {
	case age.Years > 0:
		return fmt.Sprintf("%dy %dm", age.Years, age.Months)
	case age.Months > 0:
		return fmt.Sprintf("%dm %dd", age.Months, age.Days)
	default:
		return fmt.Sprintf("%dd", age.Days)
	}
}

func latestUserText(window []Turn) string {
	for idx := len(window) - 1; idx >= 0; idx-- {
		if window[idx].Role == RoleUser {
			return strings.TrimSpace(window[idx].Content)
		}
	}
	return ""
}

func genericApology(latest string) string {
	if hasHanText(latest) {
		return fallbackTemplates[languageChinese].apology
	}
	return fallbackTemplates[languageEnglish].apology
}

func containsAnyKeyword(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
