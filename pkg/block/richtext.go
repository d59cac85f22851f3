package block

import (
	"github.com/hashicorp-forge/pagewright/pkg/limits"
)

// RichText converts a plain string into rich text objects. Strings longer
// than limits.MaxRichTextLength are split across several text objects; the
// split never breaks a UTF-8 sequence. An empty string yields an empty
// array.
func RichText(text string) []any {
	out := []any{}
	for _, part := range splitText(text, limits.MaxRichTextLength) {
		out = append(out, textObject(part, ""))
	}
	return out
}

// Link converts text into rich text objects that all point to url.
func Link(text, url string) []any {
	out := []any{}
	for _, part := range splitText(text, limits.MaxRichTextLength) {
		out = append(out, textObject(part, url))
	}
	return out
}

func textObject(content, url string) map[string]any {
	text := map[string]any{"content": content}
	if url != "" {
		text["link"] = map[string]any{"url": url}
	}
	return map[string]any{
		"type": "text",
		"text": text,
	}
}

// splitText cuts s into pieces of at most max runes.
func splitText(s string, max int) []string {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	var parts []string
	for len(runes) > max {
		parts = append(parts, string(runes[:max]))
		runes = runes[max:]
	}
	return append(parts, string(runes))
}
