package segment

import "strings"

//JoinText builds the full transcript text, one segment per line
func JoinText(segments []Segment) string {
	texts := make([]string, 0, len(segments))
	for _, s := range segments {
		texts = append(texts, s.Text)
	}
	return strings.Join(texts, "\n")
}

//SpeakerCount returns the number of distinct speaker tags in the words
func SpeakerCount(words []Word) int {
	speakers := make(map[string]bool)
	for _, w := range words {
		if w.Speaker != "" {
			speakers[w.Speaker] = true
		}
	}
	return len(speakers)
}
