package ingest

import (
	"strings"
	"unicode/utf8"
)

// split cuts text into pieces of at most size runes, preferring paragraph
// and then word boundaries.
func split(text string, size int) []string {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}

	if size <= 0 || utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); len(s) > 0 {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if len(para) == 0 {
			continue
		}

		if utf8.RuneCountInString(current.String())+utf8.RuneCountInString(para)+2 > size {
			flush()
		}

		if utf8.RuneCountInString(para) <= size {
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(para)
			continue
		}

		for _, word := range strings.Fields(para) {
			if current.Len() > 0 && utf8.RuneCountInString(current.String())+utf8.RuneCountInString(word)+1 > size {
				flush()
			}
			for utf8.RuneCountInString(word) > size {
				r := []rune(word)
				chunks = append(chunks, string(r[:size]))
				word = string(r[size:])
			}
			if current.Len() > 0 {
				current.WriteByte(' ')
			}
			current.WriteString(word)
		}
	}

	flush()

	return chunks
}
