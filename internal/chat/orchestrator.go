package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// ProfileStore is the durable child profile store. GetProfile returns nil and
// no error when nothing is stored for the family. When several rows exist the
// most recently created one is read and written.
type ProfileStore interface {
	GetProfile(ctx context.Context, familyID string) (*ChildProfile, error)
	UpsertProfile(ctx context.Context, familyID string, profile ChildProfile) error
}

// DoctorDirectory lists doctors the assistant may recommend, in display
// order. An empty list is a normal answer.
type DoctorDirectory interface {
	ListRecommendable(ctx context.Context) ([]Doctor, error)
}

// Observer receives engine events for metrics. All methods must be safe for
// concurrent use.
type Observer interface {
	MessageHandled(path string)
	CompletionFailed(reason string)
	ProfileWrite(result string)
	FieldExtracted(field string)
	StoreError(op string)
}

type noopObserver struct{}

func (noopObserver) MessageHandled(string)   {}
func (noopObserver) CompletionFailed(string) {}
func (noopObserver) ProfileWrite(string)     {}
func (noopObserver) FieldExtracted(string)   {}
func (noopObserver) StoreError(string)       {}

type Dependencies struct {
	Sessions  SessionStore
	Profiles  ProfileStore
	Doctors   DoctorDirectory
	Completer Completer
	Observer  Observer

	// Now and Location anchor "today" for age arithmetic.
	Now      func() time.Time
	Location *time.Location

	ContextTurns      int
	CompletionTimeout time.Duration
	DoctorLimit       int
	Rules             []Rule
}

// Result is what one user message produces. Extracted is nil when nothing
// was recognized in the conversation.
type Result struct {
	Reply     string
	Extracted *ExtractionCandidate
	Path      string
}

// ProfileView is a persisted profile with its derived age.
type ProfileView struct {
	Profile *ChildProfile
	Age     *NormalizedAge
}

type Orchestrator struct {
	sessions     SessionStore
	profiles     ProfileStore
	doctors      DoctorDirectory
	observer     Observer
	extractor    *EntityExtractor
	normalizer   *AgeNormalizer
	responder    *ResponseGenerator
	reconciler   ProfileReconciler
	contextTurns int
}

func NewOrchestrator(deps Dependencies) *Orchestrator {
	sessions := deps.Sessions
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}
	observer := deps.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	contextTurns := deps.ContextTurns
	if contextTurns <= 0 {
		contextTurns = DefaultContextTurns
	}
	normalizer := NewAgeNormalizer(deps.Now, deps.Location)
	return &Orchestrator{
		sessions:   sessions,
		profiles:   deps.Profiles,
		doctors:    deps.Doctors,
		observer:   observer,
		extractor:  NewEntityExtractor(deps.Rules...),
		normalizer: normalizer,
		responder: NewResponseGenerator(
			deps.Completer,
			normalizer,
			WithCompletionTimeout(deps.CompletionTimeout),
			WithDoctorLimit(deps.DoctorLimit),
		),
		contextTurns: contextTurns,
	}
}

// HandleMessage runs one full turn for a family. Only ErrInvalidInput is
// returned; completion and store failures are logged and absorbed. Turns for
// the same family are serialized end to end.
func (o *Orchestrator) HandleMessage(ctx context.Context, familyID, userMessage string) (Result, error) {
	familyID = strings.TrimSpace(familyID)
	message := strings.TrimSpace(userMessage)
	if familyID == "" {
		return Result{}, fmt.Errorf("%w: family id is required", ErrInvalidInput)
	}
	if message == "" {
		return Result{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	unlock := o.sessions.Lock(familyID)
	defer unlock()

	o.sessions.Append(familyID, Turn{Role: RoleUser, Content: message})

	persisted, readOK := o.loadProfile(ctx, familyID)
	doctors := o.listDoctors(ctx, familyID)

	reply := o.responder.Generate(ctx, ReplyInput{
		Profile: persisted,
		Doctors: doctors,
		Window:  o.sessions.RecentWindow(familyID, o.contextTurns),
	})
	if reply.Err != nil {
		reason := failureReason(reply.Err)
		o.observer.CompletionFailed(reason)
		log.Printf("chat completion fallback family_id=%s reason=%s err=%v", familyID, reason, reply.Err)
	}
	o.observer.MessageHandled(reply.Path)

	o.sessions.Append(familyID, Turn{Role: RoleAssistant, Content: reply.Text})

	candidate := o.extractor.Extract(o.sessions.History(familyID))
	candidateProfile := CandidateProfile(candidate, o.normalizer)
	o.countFields(candidateProfile)

	merged, changed := o.reconciler.Reconcile(candidateProfile, persisted)
	o.persist(ctx, familyID, merged, changed, readOK)

	result := Result{Reply: reply.Text, Path: reply.Path}
	if !candidate.IsEmpty() {
		extracted := candidate
		result.Extracted = &extracted
	}
	return result, nil
}

// ClearConversation drops the in-memory session. The persisted profile is
// untouched.
func (o *Orchestrator) ClearConversation(familyID string) error {
	familyID = strings.TrimSpace(familyID)
	if familyID == "" {
		return fmt.Errorf("%w: family id is required", ErrInvalidInput)
	}
	unlock := o.sessions.Lock(familyID)
	defer unlock()
	o.sessions.Clear(familyID)
	return nil
}

// History returns the session turns for a family in order.
func (o *Orchestrator) History(familyID string) []Turn {
	return o.sessions.History(strings.TrimSpace(familyID))
}

// Profile reads the persisted profile. Unlike HandleMessage, store failures
// are returned, wrapped in ErrStore.
func (o *Orchestrator) Profile(ctx context.Context, familyID string) (ProfileView, error) {
	familyID = strings.TrimSpace(familyID)
	if familyID == "" {
		return ProfileView{}, fmt.Errorf("%w: family id is required", ErrInvalidInput)
	}
	if o.profiles == nil {
		return ProfileView{}, nil
	}
	profile, err := o.profiles.GetProfile(ctx, familyID)
	if err != nil {
		o.observer.StoreError("get")
		return ProfileView{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	view := ProfileView{Profile: profile}
	if profile != nil && profile.HasDateOfBirth() {
		age := o.normalizer.Age(profile.DateOfBirth)
		view.Age = &age
	}
	return view, nil
}

// Today exposes the calendar date the engine computes ages against.
func (o *Orchestrator) Today() time.Time {
	return o.normalizer.Today()
}

func (o *Orchestrator) loadProfile(ctx context.Context, familyID string) (*ChildProfile, bool) {
	if o.profiles == nil {
		return nil, false
	}
	profile, err := o.profiles.GetProfile(ctx, familyID)
	if err != nil {
		o.observer.StoreError("get")
		log.Printf("chat profile read failed family_id=%s err=%v", familyID, err)
		return nil, false
	}
	return profile, true
}

func (o *Orchestrator) listDoctors(ctx context.Context, familyID string) []Doctor {
	if o.doctors == nil {
		return nil
	}
	doctors, err := o.doctors.ListRecommendable(ctx)
	if err != nil {
		o.observer.StoreError("doctors")
		log.Printf("chat doctor directory failed family_id=%s err=%v", familyID, err)
		return nil
	}
	return doctors
}

// persist writes the merged profile. Without a successful read this turn
// there is nothing to reconcile against, so the write is skipped.
func (o *Orchestrator) persist(ctx context.Context, familyID string, merged ChildProfile, changed, readOK bool) {
	if !changed || !readOK {
		o.observer.ProfileWrite("skipped")
		return
	}
	if err := o.profiles.UpsertProfile(ctx, familyID, merged); err != nil {
		o.observer.ProfileWrite("error")
		o.observer.StoreError("upsert")
		log.Printf("chat profile write failed family_id=%s err=%v", familyID, err)
		return
	}
	o.observer.ProfileWrite("ok")
}

func (o *Orchestrator) countFields(profile ChildProfile) {
	if profile.HasName() {
		o.observer.FieldExtracted("name")
	}
	if profile.HasDateOfBirth() {
		o.observer.FieldExtracted("date_of_birth")
	}
	if profile.HasGender() {
		o.observer.FieldExtracted("gender")
	}
}
