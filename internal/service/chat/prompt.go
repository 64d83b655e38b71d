package chat

import (
	"strings"

	"github.com/w-h-a/lio/retriever"
)

const groundingNote = "Note: Only respond using the information found in the provided context above."

func buildPrompt(snippets []retriever.Snippet, message string, contextChars int) string {
	blocks := make([]string, 0, len(snippets))
	for _, snippet := range snippets {
		blocks = append(blocks, "Context from document: "+truncate(snippet.Content, contextChars))
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(blocks, "\n\n"))
	sb.WriteString("\nUser: ")
	sb.WriteString(message)
	sb.WriteString("\n")
	sb.WriteString(groundingNote)

	return sb.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// slices splits text into consecutive pieces of at most size characters.
func slices(text string, size int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}
