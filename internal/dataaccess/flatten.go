package dataaccess

import "strings"

// Flatten renders a transcript document to plain text by concatenating
// segments in document order. Speaker labels are kept when present so
// downstream agents see turn boundaries.
func Flatten(doc *TranscriptDocument) string {
	if doc == nil {
		return ""
	}
	var sb strings.Builder
	for _, seg := range doc.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		if seg.Speaker != "" {
			sb.WriteString(seg.Speaker)
			sb.WriteString(": ")
		}
		sb.WriteString(text)
	}
	return sb.String()
}
