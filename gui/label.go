package gui

import "strings"

const maxLabel = 40

// menuLabel turns a transcription into a single short menu entry.
func menuLabel(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= maxLabel {
		return text
	}
	return strings.TrimRight(string(r[:maxLabel-1]), " ") + "…"
}
