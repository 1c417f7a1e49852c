package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type stubCompleter struct {
	reply string
	err   error
	block bool

	calls        int
	systemPrompt string
	history      []Turn
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt string, history []Turn) (string, error) {
	s.calls++
	s.systemPrompt = systemPrompt
	s.history = append([]Turn(nil), history...)
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.reply, s.err
}

func testGenerator(completer Completer, opts ...ResponseGeneratorOption) *ResponseGenerator {
	return NewResponseGenerator(completer, NewAgeNormalizer(fixedClock(2024, time.June, 15), time.UTC), opts...)
}

func userWindow(messages ...string) []Turn {
	turns := make([]Turn, 0, len(messages))
	for _, message := range messages {
		turns = append(turns, Turn{Role: RoleUser, Content: message})
	}
	return turns
}

func TestGenerateUsesCompletion(t *testing.T) {
	t.Parallel()
	completer := &stubCompleter{reply: "  Hello from the model.  "}
	window := userWindow("hi")

	reply := testGenerator(completer).Generate(context.Background(), ReplyInput{Window: window})
	if reply.Path != PathCompletion || reply.Err != nil {
		t.Fatalf("expected completion path, got %+v", reply)
	}
	if reply.Text != "Hello from the model." {
		t.Fatalf("expected trimmed completion text, got %q", reply.Text)
	}
	if len(completer.history) != 1 || completer.history[0].Content != "hi" {
		t.Fatalf("expected window to be forwarded, got %+v", completer.history)
	}
}

func TestGenerateFallsBackOnFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		completer Completer
		reason    string
	}{
		{name: "no completer", completer: nil, reason: "unavailable"},
		{name: "unavailable", completer: &stubCompleter{err: fmt.Errorf("%w: missing key", ErrUnavailable)}, reason: "unavailable"},
		{name: "transport", completer: &stubCompleter{err: fmt.Errorf("%w: status 502", ErrTransport)}, reason: "transport"},
		{name: "malformed", completer: &stubCompleter{err: fmt.Errorf("%w: bad json", ErrMalformedResponse)}, reason: "malformed"},
		{name: "empty text", completer: &stubCompleter{reply: "   "}, reason: "malformed"},
		{name: "hung call", completer: &stubCompleter{block: true}, reason: "timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			generator := testGenerator(tc.completer, WithCompletionTimeout(20*time.Millisecond))
			reply := generator.Generate(context.Background(), ReplyInput{Window: userWindow("hello")})
			if reply.Path != PathFallback {
				t.Fatalf("expected fallback path, got %s", reply.Path)
			}
			if strings.TrimSpace(reply.Text) == "" {
				t.Fatalf("expected non-empty fallback text")
			}
			if got := failureReason(reply.Err); got != tc.reason {
				t.Fatalf("expected failure reason %s, got %s (err=%v)", tc.reason, got, reply.Err)
			}
		})
	}
}

func TestFallbackFollowsDialogueState(t *testing.T) {
	t.Parallel()
	generator := testGenerator(nil)
	dob := mustDate(t, "2021-04-01")

	needName := generator.Fallback(ReplyInput{Window: userWindow("hello")})
	if needName != fallbackTemplates[languageEnglish].needName {
		t.Fatalf("expected name prompt, got %q", needName)
	}

	needAge := generator.Fallback(ReplyInput{Profile: &ChildProfile{Name: "Leo"}, Window: userWindow("hello")})
	if !strings.Contains(needAge, "Leo's date of birth or age") {
		t.Fatalf("expected age prompt, got %q", needAge)
	}

	needGender := generator.Fallback(ReplyInput{Profile: &ChildProfile{Name: "Leo", DateOfBirth: dob}, Window: userWindow("hello")})
	if !strings.Contains(needGender, "Leo's gender") {
		t.Fatalf("expected gender prompt, got %q", needGender)
	}

	ready := generator.Fallback(ReplyInput{
		Profile: &ChildProfile{Name: "Leo", DateOfBirth: dob, Gender: GenderMale},
		Window:  userWindow("he is not eating much"),
	})
	if !strings.Contains(ready, "your concern about Leo (3y 2m)") {
		t.Fatalf("expected general reply with compact age, got %q", ready)
	}
}

func TestFallbackSymptomTemplatesAndDoctors(t *testing.T) {
	t.Parallel()
	generator := testGenerator(nil, WithDoctorLimit(2))
	profile := &ChildProfile{Name: "Leo", DateOfBirth: mustDate(t, "2021-04-01"), Gender: GenderMale}
	doctors := []Doctor{
		{Name: "Dr. Emily Park", Specialty: "Pediatrics", Location: "Seattle"},
		{Name: ""},
		{Name: "Dr. Wei Chen", Specialty: "Pediatric Pulmonology"},
		{Name: "Dr. Third"},
	}

	fever := generator.Fallback(ReplyInput{Profile: profile, Doctors: doctors, Window: userWindow("he has a Fever since last night")})
	if !strings.Contains(fever, "Leo's fever") {
		t.Fatalf("expected fever template, got %q", fever)
	}
	if !strings.Contains(fever, "• Dr. Emily Park (Pediatrics, Seattle)") || !strings.Contains(fever, "• Dr. Wei Chen (Pediatric Pulmonology)") {
		t.Fatalf("expected doctor snippet, got %q", fever)
	}
	if strings.Contains(fever, "Dr. Third") {
		t.Fatalf("expected doctor limit to apply, got %q", fever)
	}

	cough := generator.Fallback(ReplyInput{Profile: profile, Window: userWindow("still coughing, cough all night")})
	if !strings.Contains(cough, "Leo has a cough") || strings.Contains(cough, "Pediatricians available") {
		t.Fatalf("expected cough template without doctors, got %q", cough)
	}

	request := generator.Fallback(ReplyInput{Profile: profile, Doctors: doctors, Window: userWindow("can you recommend a doctor?")})
	if !strings.Contains(request, "Pediatricians available for a consultation:") {
		t.Fatalf("expected doctor snippet on explicit request, got %q", request)
	}

	plain := generator.Fallback(ReplyInput{Profile: profile, Doctors: doctors, Window: userWindow("he sleeps badly")})
	if strings.Contains(plain, "Dr. Emily Park") {
		t.Fatalf("expected no doctor snippet without symptom or request, got %q", plain)
	}
}

func TestFallbackChinese(t *testing.T) {
	t.Parallel()
	generator := testGenerator(nil)
	doctors := []Doctor{{Name: "王医生", Specialty: "儿科", Location: "上海"}}

	if got := generator.Fallback(ReplyInput{Window: userWindow("你好")}); got != fallbackTemplates[languageChinese].needName {
		t.Fatalf("expected Chinese name prompt, got %q", got)
	}

	profile := &ChildProfile{Name: "小明", DateOfBirth: mustDate(t, "2021-04-01"), Gender: GenderMale}
	fever := generator.Fallback(ReplyInput{Profile: profile, Doctors: doctors, Window: userWindow("宝宝发烧了")})
	if !strings.Contains(fever, "担心小明发烧") || !strings.Contains(fever, "• 王医生 (儿科, 上海)") {
		t.Fatalf("expected Chinese fever template with doctors, got %q", fever)
	}
}

func TestFallbackUsesLatestUserTurn(t *testing.T) {
	t.Parallel()
	generator := testGenerator(nil)
	profile := &ChildProfile{Name: "Leo", DateOfBirth: mustDate(t, "2021-04-01"), Gender: GenderMale}
	window := []Turn{
		{Role: RoleUser, Content: "he had a fever yesterday"},
		{Role: RoleAssistant, Content: "I see."},
		{Role: RoleUser, Content: "today he is playing again"},
		{Role: RoleAssistant, Content: "Good to hear."},
	}
	reply := generator.Fallback(ReplyInput{Profile: profile, Window: window})
	if strings.Contains(reply, "fever") {
		t.Fatalf("expected only the latest user turn to select the template, got %q", reply)
	}
}

func TestSystemPrompt(t *testing.T) {
	t.Parallel()
	generator := testGenerator(nil)

	empty := generator.SystemPrompt(nil, nil)
	if !strings.Contains(empty, "No child information on file yet") {
		t.Fatalf("expected empty-profile line, got %q", empty)
	}
	if strings.Contains(empty, "Doctors you may recommend") {
		t.Fatalf("expected no doctor section without doctors")
	}

	prompt := generator.SystemPrompt(
		&ChildProfile{Name: "Leo", DateOfBirth: mustDate(t, "2021-04-01")},
		[]Doctor{{Name: "Dr. Emily Park", Specialty: "Pediatrics"}},
	)
	for _, want := range []string{
		"- Name: Leo",
		"- Date of Birth: 2021-04-01 (3y 2m)",
		"- Gender: Not provided",
		"- Medical Record: None",
		"- Dr. Emily Park (Pediatrics)",
		"Ask one question at a time.",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected system prompt to contain %q, got %q", want, prompt)
		}
	}
}

func TestGenerateRespectsParentCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply := testGenerator(&stubCompleter{block: true}).Generate(ctx, ReplyInput{Window: userWindow("hello")})
	if reply.Path != PathFallback || !errors.Is(reply.Err, context.Canceled) {
		t.Fatalf("expected canceled call to fall back, got %+v", reply)
	}
}
