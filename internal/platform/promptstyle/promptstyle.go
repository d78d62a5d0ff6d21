package promptstyle

import "strings"

const marker = "COURSEGEN_PROMPT_STYLE_V1"

type Mode string

const (
	ModeJSON Mode = "json"
	ModeText Mode = "text"
	ModeChat Mode = "chat"
)

// ApplySystem prefixes a system prompt with the shared house rules for the given mode.
// Prompts that already carry the block are returned unchanged.
func ApplySystem(system string, mode Mode) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou write educational material for self-paced online courses.")
	if first := firstLine(base); first != "" {
		b.WriteString("\nTask: " + first)
	}
	b.WriteString("\nWrite for a motivated beginner unless the task says otherwise.")
	b.WriteString("\nDo not invent citations, statistics or URLs.")
	switch mode {
	case ModeJSON:
		b.WriteString("\nReturn a single JSON object that conforms to the schema. No markdown fences, no extra keys.")
	case ModeChat:
		b.WriteString("\nAnswer as a patient tutor. Stay on the topic of the course; decline unrelated requests briefly.")
	default:
		b.WriteString("\nBe concise and structured.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return b.String()
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
