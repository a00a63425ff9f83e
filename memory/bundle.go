package memory

import "strings"

// DefaultBundleMaxChars caps the formatted context injected into a prompt.
const DefaultBundleMaxChars = 1200

// Snippet is one retrieved fact fragment with its relevance score.
type Snippet struct {
	Text  string
	Score float64
}

// ContextBundle is the result of a memory query: ranked snippets created per
// turn and discarded once the turn completes. It is never persisted.
type ContextBundle struct {
	Snippets []Snippet
}

// Empty reports whether the bundle carries no snippets.
func (b *ContextBundle) Empty() bool {
	return b == nil || len(b.Snippets) == 0
}

// Format renders the bundle for prompt injection, capped at maxChars.
// Snippets are emitted in rank order; a snippet that would exceed the cap is
// dropped along with everything after it.
func (b *ContextBundle) Format(maxChars int) string {
	if b.Empty() {
		return ""
	}
	if maxChars <= 0 {
		maxChars = DefaultBundleMaxChars
	}

	var sb strings.Builder
	const header = "Relevant memories:"
	sb.WriteString(header)
	for _, sn := range b.Snippets {
		line := "\n- " + sn.Text
		if sb.Len()+len(line) > maxChars {
			break
		}
		sb.WriteString(line)
	}
	if sb.Len() == len(header) {
		return ""
	}
	return sb.String()
}
