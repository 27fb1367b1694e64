package council

import (
	"fmt"
	"strings"
)

// DebateItem is one point of disagreement extracted from the chairman's text.
type DebateItem struct {
	Topic     string `json:"topic"`
	Positions string `json:"positions"`
}

// Synthesis is the structured result of parsing the chairman's raw output.
type Synthesis struct {
	ConsensusItems []string
	Debates        []DebateItem
	FullText       string
}

// ParserConfig carries the section markers and bullet prefixes the parser
// recognizes. These mirror what the synthesis prompt asks the chairman for,
// but the chairman may drift from the format, so they stay configurable.
type ParserConfig struct {
	ConsensusMarker string
	DebatesMarker   string
	SynthesisMarker string
	BulletPrefixes  []string
}

// DefaultParserConfig matches the format requested by the synthesis prompt.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		ConsensusMarker: "CONSENSUS",
		DebatesMarker:   "DEBATES",
		SynthesisMarker: "SYNTHESIS",
		BulletPrefixes:  []string{"•", "-", "*"},
	}
}

func (c ParserConfig) withDefaults() ParserConfig {
	d := DefaultParserConfig()
	if c.ConsensusMarker == "" {
		c.ConsensusMarker = d.ConsensusMarker
	}
	if c.DebatesMarker == "" {
		c.DebatesMarker = d.DebatesMarker
	}
	if c.SynthesisMarker == "" {
		c.SynthesisMarker = d.SynthesisMarker
	}
	if len(c.BulletPrefixes) == 0 {
		c.BulletPrefixes = d.BulletPrefixes
	}
	return c
}

// SynthesisParser extracts consensus items, debate items and the free-form
// synthesis text from the chairman's raw output. It is a best-effort line
// scanner, not a grammar: a section header advances the state no matter the
// current state, unrecognized lines are skipped, and text with no headers at
// all degrades to "everything is synthesis text". That degradation is the
// accepted behavior when the chairman ignores the requested format.
type SynthesisParser struct {
	cfg ParserConfig
}

// NewSynthesisParser builds a parser; zero-value config fields fall back to
// the defaults.
func NewSynthesisParser(cfg ParserConfig) *SynthesisParser {
	return &SynthesisParser{cfg: cfg.withDefaults()}
}

type parserSection int

const (
	sectionNone parserSection = iota
	sectionConsensus
	sectionDebates
	sectionSynthesis
)

// Parse never fails; malformed input yields a Synthesis with whatever could
// be extracted.
func (p *SynthesisParser) Parse(raw string) Synthesis {
	syn := Synthesis{
		ConsensusItems: []string{},
		Debates:        []DebateItem{},
	}

	section := sectionNone
	sawHeader := false
	var synthesisLines []string

	for _, line := range strings.Split(raw, "\n") {
		stripped := strings.TrimSpace(line)

		if p.matchHeader(stripped, p.cfg.ConsensusMarker) {
			section = sectionConsensus
			sawHeader = true
			continue
		}
		if p.matchHeader(stripped, p.cfg.DebatesMarker) {
			section = sectionDebates
			sawHeader = true
			continue
		}
		if p.matchHeader(stripped, p.cfg.SynthesisMarker) {
			section = sectionSynthesis
			sawHeader = true
			// keep the header line's own trailing content ("SYNTHESIS: ...")
			if rest := headerRest(stripped, p.cfg.SynthesisMarker); rest != "" {
				synthesisLines = append(synthesisLines, rest)
			}
			continue
		}

		switch section {
		case sectionConsensus:
			if item, ok := p.stripBullet(stripped); ok && item != "" {
				syn.ConsensusItems = append(syn.ConsensusItems, item)
			}
		case sectionDebates:
			if item, ok := p.stripBullet(stripped); ok && item != "" {
				syn.Debates = append(syn.Debates, splitDebate(item))
			}
		case sectionSynthesis:
			synthesisLines = append(synthesisLines, line)
		}
	}

	if !sawHeader {
		// no recognizable structure: the whole text is the synthesis
		syn.FullText = raw
		return syn
	}
	syn.FullText = strings.TrimSpace(strings.Join(synthesisLines, "\n"))
	return syn
}

func (p *SynthesisParser) matchHeader(stripped, marker string) bool {
	return len(stripped) >= len(marker) &&
		strings.EqualFold(stripped[:len(marker)], marker)
}

// headerRest returns the content following a section marker on the same
// line, with the separating colon and whitespace removed.
func headerRest(stripped, marker string) string {
	rest := stripped[len(marker):]
	rest = strings.TrimLeft(rest, ":")
	return strings.TrimSpace(rest)
}

func (p *SynthesisParser) stripBullet(stripped string) (string, bool) {
	for _, prefix := range p.cfg.BulletPrefixes {
		if strings.HasPrefix(stripped, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(stripped, prefix)), true
		}
	}
	return "", false
}

// splitDebate splits a debate bullet on the first colon into topic and
// positions; with no colon the whole item becomes the topic.
func splitDebate(item string) DebateItem {
	if idx := strings.Index(item, ":"); idx >= 0 {
		return DebateItem{
			Topic:     strings.TrimSpace(item[:idx]),
			Positions: strings.TrimSpace(item[idx+1:]),
		}
	}
	return DebateItem{Topic: item}
}

// buildSynthesisPrompt assembles the chairman prompt from the original query
// and every successful member response. Failed members are excluded; the
// chairman's own council answer, if it sat on the council, is included like
// any other and never re-requested.
func buildSynthesisPrompt(query string, responses []*MemberResponse) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`You are the Chairman of a council of AI models. The council was asked to debate the following question:

QUESTION: %s

The council members provided the following responses:

`, query))

	for _, r := range responses {
		sb.WriteString(fmt.Sprintf("\n--- %s ---\n%s\n", r.ModelID, r.Text()))
	}

	sb.WriteString(`
As Chairman, your task is to synthesize these responses. Please provide:

1. **CONSENSUS**: List the key points where all or most council members agree. Start each point with "` + "•" + ` "

2. **DEBATES**: List the key points where council members disagree or take different approaches. For each debate, explain the different positions. Start each point with "` + "•" + ` "

3. **SYNTHESIS**: Provide your final synthesis that incorporates the council's collective wisdom, acknowledges the debates, and offers a balanced conclusion.

Format your response EXACTLY as follows:

CONSENSUS:
` + "•" + ` [consensus point 1]
` + "•" + ` [consensus point 2]
...

DEBATES:
` + "•" + ` [debate topic]: [model A's position] vs [model B's position]
` + "•" + ` [debate topic]: [different perspectives]
...

SYNTHESIS:
[Your final synthesis statement incorporating the above]
`)
	return sb.String()
}
