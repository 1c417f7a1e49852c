package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"parentdoctor/backend/internal/chat"
	"parentdoctor/backend/internal/completion"
	"parentdoctor/backend/internal/config"
	"parentdoctor/backend/internal/store"
)

const defaultSQLitePath = "parentdoctor.db"

var (
	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	replyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)
)

type cliOptions struct {
	familyID    string
	sqlitePath  string
	databaseURL string
	doctorFile  string
	mock        bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:   "chatcli",
		Short: "Talk to the pediatric chat engine from a terminal",
		Long: `Drive the same conversation engine the API serves, without an HTTP client.

Quick Start:
  chatcli say --family f1 "My son's name is Leo"   # one message, then exit
  chatcli repl --family f1                         # interactive session
  chatcli profile --family f1                      # stored child profile`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.familyID, "family", "local", "family id the conversation belongs to")
	flags.StringVar(&opts.sqlitePath, "sqlite", defaultSQLitePath, "SQLite file for profiles; empty keeps them in memory")
	flags.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL URL; overrides --sqlite")
	flags.StringVar(&opts.doctorFile, "doctors", "", "YAML doctor directory file")
	flags.BoolVar(&opts.mock, "mock", false, "answer with the deterministic mock instead of the completion service")

	root.AddCommand(newSayCmd(opts), newReplCmd(opts), newProfileCmd(opts))
	return root
}

type session struct {
	engine *chat.Orchestrator
	stores *store.Stores
}

func (s *session) Close() {
	s.stores.Close()
}

func openSession(ctx context.Context, opts *cliOptions) (*session, error) {
	cfg := config.Load()
	if err := cfg.ValidateEngine(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	stores, err := store.Open(ctx, store.Options{
		DatabaseURL: opts.databaseURL,
		SQLitePath:  opts.sqlitePath,
		DoctorFile:  opts.doctorFile,
	})
	if err != nil {
		return nil, err
	}

	var completer chat.Completer
	if opts.mock {
		completer = completion.Mock{}
	} else if client := completion.NewOpenAIClient(cfg); client.Configured() {
		completer = client
	}

	engine := chat.NewOrchestrator(chat.Dependencies{
		Profiles:          stores.Profiles,
		Doctors:           stores.Doctors,
		Completer:         completer,
		Location:          cfg.Location(),
		ContextTurns:      cfg.ChatContextTurns,
		CompletionTimeout: cfg.AITimeout(),
		DoctorLimit:       cfg.DoctorRecommendLimit,
	})
	return &session{engine: engine, stores: stores}, nil
}

func renderResult(w io.Writer, result chat.Result) {
	fmt.Fprintln(w, replyStyle.Render(result.Reply))
	if result.Path == chat.PathFallback {
		fmt.Fprintln(w, noteStyle.Render("(fallback reply)"))
	}
	if result.Extracted == nil {
		return
	}
	facts := make([]string, 0, 4)
	if name := strings.TrimSpace(result.Extracted.Name); name != "" {
		facts = append(facts, "name="+name)
	}
	if !result.Extracted.ExplicitDate.IsZero() {
		facts = append(facts, "date_of_birth="+result.Extracted.ExplicitDate.Format(time.DateOnly))
	} else if raw := strings.TrimSpace(result.Extracted.RawTemporalText); raw != "" {
		facts = append(facts, "age="+raw)
	}
	if result.Extracted.Gender != chat.GenderUnknown {
		facts = append(facts, "gender="+string(result.Extracted.Gender))
	}
	if len(facts) > 0 {
		fmt.Fprintln(w, labelStyle.Render("extracted:")+" "+strings.Join(facts, " "))
	}
}

func renderProfile(w io.Writer, view chat.ProfileView, today time.Time) {
	if view.Profile == nil || view.Profile.IsEmpty() {
		fmt.Fprintln(w, noteStyle.Render("no child information on file"))
		return
	}
	profile := view.Profile
	rows := [][2]string{
		{"name", orDash(profile.Name)},
		{"gender", orDash(string(profile.Gender))},
		{"notes", orDash(profile.FreeTextNotes)},
	}
	if profile.HasDateOfBirth() {
		rows = append(rows, [2]string{"date_of_birth", profile.DateOfBirth.Format(time.DateOnly)})
	} else {
		rows = append(rows, [2]string{"date_of_birth", "-"})
	}
	if view.Age != nil {
		rows = append(rows, [2]string{
			"age",
			fmt.Sprintf("%dy %dm %dd (as of %s)", view.Age.Years, view.Age.Months, view.Age.Days, today.Format(time.DateOnly)),
		})
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(row[0]+":"), row[1])
	}
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
