package main

import (
	"bytes"
	"strings"
	"testing"
)

func execute(tb testing.TB, args ...string) string {
	tb.Helper()
	var buf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		tb.Fatal(err)
	}
	return buf.String()
}

func TestEvalCommand(t *testing.T) {
	t.Run("Member", func(t *testing.T) {
		out := execute(t, "eval", ".*b.*", "abc")
		if !strings.Contains(out, "simplified: true") {
			t.Fatalf("unexpected output: %s", out)
		} else if !strings.Contains(out, "value:      true") {
			t.Fatalf("unexpected output: %s", out)
		}
	})
	t.Run("NonMember", func(t *testing.T) {
		out := execute(t, "eval", "a+", "ab")
		if !strings.Contains(out, "simplified: false") {
			t.Fatalf("unexpected output: %s", out)
		}
	})
}

func TestMatchCommand(t *testing.T) {
	out := execute(t, "match", "--automaton", "(ab|c){1,2}", "ab", "abc", "b")
	for _, line := range []string{"\"ab\"\ttrue\ttrue", "\"abc\"\ttrue\ttrue", "\"b\"\tfalse\tfalse"} {
		if !strings.Contains(out, line) {
			t.Fatalf("missing %q in output: %s", line, out)
		}
	}
	if !strings.Contains(out, "states: ") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestDerivCommand(t *testing.T) {
	out := execute(t, "deriv", "ab")
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 1 {
		t.Fatalf("unexpected successors: %q", lines)
	}
}

func TestParseRegex(t *testing.T) {
	t.Run("Anchor", func(t *testing.T) {
		cmd := NewRootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"eval", "^a", "a"})
		if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "unsupported operator") {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	t.Run("Syntax", func(t *testing.T) {
		cmd := NewRootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"eval", "a(", "a"})
		if err := cmd.Execute(); err == nil {
			t.Fatal("expected error")
		}
	})
}
