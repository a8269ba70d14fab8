package snippet

import (
	"testing"
	"time"
)

func TestSubmissionStatus(t *testing.T) {
	week := date(2012, time.February, 13)
	authors := []Author{
		{Email: "alice@x.com", WantsEmail: true},
		{Email: "bob@x.com", WantsEmail: true},
		{Email: "carol@x.com", WantsEmail: false},
	}
	snippets := []Snippet{
		{Email: "alice@x.com", Week: week, Text: "done"},
		{Email: "carol@x.com", Week: week, Text: "also done"},
		{Email: "stranger@x.com", Week: week, Text: "who?"},
	}

	status := SubmissionStatus(authors, snippets)

	if len(status) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(status), status)
	}
	if !status["alice@x.com"] {
		t.Error("alice submitted and should be true")
	}
	if status["bob@x.com"] {
		t.Error("bob did not submit and should be false")
	}
	if _, ok := status["carol@x.com"]; ok {
		t.Error("carol opted out and must not appear, submitted or not")
	}
	if _, ok := status["stranger@x.com"]; ok {
		t.Error("unknown emails must not introduce keys")
	}
}
