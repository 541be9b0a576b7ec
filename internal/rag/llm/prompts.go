package llm

import (
	"fmt"
	"strings"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/domain/chatModel"
)

const (
	summarizeInstruction = "Summarize the document below in markdown. Start with a one sentence overview, then list the key points."
	discussInstruction   = "Answer the question using only the documents below. Name the document you rely on. If they do not contain the answer, say that more context is needed."
	titleInstruction     = "Write a short title, at most six words, for a conversation that starts with the message below. Reply with the title only."

	maxHistoryMessages = 10
	maxTitleLength     = 60
)

func systemPrompt(instruction string) string {
	return config.ModelContext + "\n" + instruction
}

func formatHistory(history []chatModel.Message) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

func formatDocuments(docs []DocumentReference) string {
	if len(docs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Documents:\n")
	for _, d := range docs {
		fmt.Fprintf(&b, "### %s (id %s)\n", d.Name, d.ID)
		switch {
		case len(d.Sections) > 0:
			for _, s := range d.Sections {
				b.WriteString(s)
				b.WriteString("\n\n")
			}
		case d.Content != "":
			b.WriteString(d.Content)
			b.WriteString("\n\n")
		case d.Summary != "":
			b.WriteString(d.Summary)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func chatPrompt(input string, history []chatModel.Message, docs []DocumentReference) string {
	return strings.Join(nonEmpty(formatDocuments(docs), formatHistory(history), "User: "+input), "\n")
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// cleanTitle strips quoting and markdown the model tends to add.
func cleanTitle(raw string) string {
	t := strings.TrimSpace(raw)
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[:i]
	}
	t = strings.Trim(t, "\"'`*# ")
	return truncateRunes(t, maxTitleLength)
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}
