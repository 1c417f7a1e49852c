package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSayPrintsReplyAndExtraction(t *testing.T) {
	out, err := runCLI(t, "", "say", "--sqlite", "", "--mock", "--family", "f1", "My son's name is Leo")
	if err != nil {
		t.Fatalf("expected say to succeed, got %v", err)
	}
	if !strings.Contains(out, "Mock response: My son's name is Leo") {
		t.Fatalf("expected mock reply, got %q", out)
	}
	if !strings.Contains(out, "name=Leo") || !strings.Contains(out, "gender=male") {
		t.Fatalf("expected extracted facts, got %q", out)
	}
}

func TestSayRejectsBlankMessage(t *testing.T) {
	if _, err := runCLI(t, "", "say", "--sqlite", "", "--mock", "   "); err == nil {
		t.Fatalf("expected blank message to fail")
	}
	if _, err := runCLI(t, "", "say", "--sqlite", ""); err == nil {
		t.Fatalf("expected missing message to fail")
	}
}

func TestProfilePersistsAcrossInvocations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chat.db")
	if _, err := runCLI(t, "", "say", "--sqlite", dbPath, "--mock", "--family", "f1", "My daughter's name is Mia, born 2024-01-20"); err != nil {
		t.Fatalf("expected say to succeed, got %v", err)
	}

	out, err := runCLI(t, "", "profile", "--sqlite", dbPath, "--family", "f1")
	if err != nil {
		t.Fatalf("expected profile to succeed, got %v", err)
	}
	for _, want := range []string{"Mia", "female", "2024-01-20"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in profile output, got %q", want, out)
		}
	}

	out, err = runCLI(t, "", "profile", "--sqlite", dbPath, "--family", "someone-else")
	if err != nil || !strings.Contains(out, "no child information on file") {
		t.Fatalf("expected empty profile for another family, got %q err=%v", out, err)
	}
}

func TestReplHandlesCommands(t *testing.T) {
	input := strings.Join([]string{
		"My son is called Leo",
		"",
		"/profile",
		"/clear",
		"/quit",
		"never sent",
	}, "\n")
	out, err := runCLI(t, input, "repl", "--sqlite", "", "--mock", "--family", "f1")
	if err != nil {
		t.Fatalf("expected repl to succeed, got %v", err)
	}
	for _, want := range []string{"backend memory", "Mock response: My son is called Leo", "name: Leo", "conversation cleared"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in repl output, got %q", want, out)
		}
	}
	if strings.Contains(out, "never sent") {
		t.Fatalf("expected input after /quit to be ignored, got %q", out)
	}
}

func TestReplEndsOnEOF(t *testing.T) {
	if _, err := runCLI(t, "hello", "repl", "--sqlite", "", "--mock"); err != nil {
		t.Fatalf("expected EOF to end the repl cleanly, got %v", err)
	}
}
