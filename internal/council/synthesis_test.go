package council

import (
	"strings"
	"testing"
)

func TestParseWellFormedSynthesis(t *testing.T) {
	raw := `CONSENSUS:
• Both models agree caching helps.
• Latency matters more than throughput here.

DEBATES:
• Storage engine: model A prefers Postgres vs model B prefers SQLite.

SYNTHESIS:
Use Postgres with a small cache in front.`

	syn := NewSynthesisParser(ParserConfig{}).Parse(raw)

	if len(syn.ConsensusItems) != 2 {
		t.Fatalf("expected 2 consensus items, got %d: %v", len(syn.ConsensusItems), syn.ConsensusItems)
	}
	if syn.ConsensusItems[0] != "Both models agree caching helps." {
		t.Fatalf("unexpected first consensus item: %q", syn.ConsensusItems[0])
	}
	if len(syn.Debates) != 1 {
		t.Fatalf("expected 1 debate, got %d", len(syn.Debates))
	}
	if syn.Debates[0].Topic != "Storage engine" {
		t.Fatalf("unexpected debate topic: %q", syn.Debates[0].Topic)
	}
	if syn.Debates[0].Positions != "model A prefers Postgres vs model B prefers SQLite." {
		t.Fatalf("unexpected debate positions: %q", syn.Debates[0].Positions)
	}
	if syn.FullText != "Use Postgres with a small cache in front." {
		t.Fatalf("unexpected synthesis text: %q", syn.FullText)
	}
}

func TestParseNoHeadersDegradesToFullText(t *testing.T) {
	raw := "The chairman ignored the format and just wrote prose.\nTwo lines of it."

	syn := NewSynthesisParser(ParserConfig{}).Parse(raw)

	if syn.FullText != raw {
		t.Fatalf("expected entire text preserved, got %q", syn.FullText)
	}
	if len(syn.ConsensusItems) != 0 || len(syn.Debates) != 0 {
		t.Fatalf("expected empty sections, got %v / %v", syn.ConsensusItems, syn.Debates)
	}
	if syn.ConsensusItems == nil || syn.Debates == nil {
		t.Fatalf("sections must be empty slices, not nil")
	}
}

func TestParseSynthesisHeaderTrailingContent(t *testing.T) {
	raw := "SYNTHESIS: everything on one line"

	syn := NewSynthesisParser(ParserConfig{}).Parse(raw)

	if syn.FullText != "everything on one line" {
		t.Fatalf("expected header trailing content kept, got %q", syn.FullText)
	}
}

func TestParseDebateWithoutColon(t *testing.T) {
	raw := "DEBATES:\n- just a topic with no positions"

	syn := NewSynthesisParser(ParserConfig{}).Parse(raw)

	if len(syn.Debates) != 1 {
		t.Fatalf("expected 1 debate, got %d", len(syn.Debates))
	}
	if syn.Debates[0].Topic != "just a topic with no positions" || syn.Debates[0].Positions != "" {
		t.Fatalf("unexpected debate item: %+v", syn.Debates[0])
	}
}

func TestParseIsCaseInsensitiveAndAcceptsAllBullets(t *testing.T) {
	raw := `consensus:
- dash bullet
* star bullet
• dot bullet
synthesis:
done`

	syn := NewSynthesisParser(ParserConfig{}).Parse(raw)

	if len(syn.ConsensusItems) != 3 {
		t.Fatalf("expected 3 consensus items, got %v", syn.ConsensusItems)
	}
	if syn.FullText != "done" {
		t.Fatalf("unexpected synthesis text: %q", syn.FullText)
	}
}

func TestParseCustomMarkers(t *testing.T) {
	parser := NewSynthesisParser(ParserConfig{
		ConsensusMarker: "AGREED",
		DebatesMarker:   "CONTESTED",
		SynthesisMarker: "VERDICT",
		BulletPrefixes:  []string{">"},
	})

	syn := parser.Parse("AGREED:\n> one\nCONTESTED:\n> a: b\nVERDICT:\nfinal word")

	if len(syn.ConsensusItems) != 1 || syn.ConsensusItems[0] != "one" {
		t.Fatalf("unexpected consensus items: %v", syn.ConsensusItems)
	}
	if len(syn.Debates) != 1 || syn.Debates[0].Topic != "a" {
		t.Fatalf("unexpected debates: %v", syn.Debates)
	}
	if syn.FullText != "final word" {
		t.Fatalf("unexpected synthesis text: %q", syn.FullText)
	}
}

func TestParseNonBulletLinesInsideSectionsAreSkipped(t *testing.T) {
	raw := "CONSENSUS:\nsome narration line\n• a real item"

	syn := NewSynthesisParser(ParserConfig{}).Parse(raw)

	if len(syn.ConsensusItems) != 1 || syn.ConsensusItems[0] != "a real item" {
		t.Fatalf("unexpected consensus items: %v", syn.ConsensusItems)
	}
}

func TestBuildSynthesisPromptIncludesEveryResponse(t *testing.T) {
	a := newMemberResponse("gpt-4o")
	a.append("answer from a")
	b := newMemberResponse("claude-3")
	b.append("answer from b")

	prompt := buildSynthesisPrompt("What database should we use?", []*MemberResponse{a, b})

	if !strings.Contains(prompt, "QUESTION: What database should we use?") {
		t.Fatalf("prompt missing question:\n%s", prompt)
	}
	for _, want := range []string{"--- gpt-4o ---", "answer from a", "--- claude-3 ---", "answer from b"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if !strings.Contains(prompt, "CONSENSUS") || !strings.Contains(prompt, "DEBATES") || !strings.Contains(prompt, "SYNTHESIS") {
		t.Fatalf("prompt missing format instructions")
	}
}
