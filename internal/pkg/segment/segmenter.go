package segment

import (
	"regexp"
	"strings"
)

//Word is one recognized word with its timing
type Word struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

//Segment groups a contiguous run of words into one transcript line
type Segment struct {
	Index   int     `json:"index" bson:"index"`
	Start   float64 `json:"start" bson:"start"`
	End     float64 `json:"end" bson:"end"`
	Text    string  `json:"text" bson:"text"`
	Words   []Word  `json:"words" bson:"words"`
	Speaker string  `json:"speaker,omitempty" bson:"speaker,omitempty"`
}

var sentenceEnd = regexp.MustCompile(`[.!?]$`)

//Split breaks an ordered word stream into segments.
//A segment ends on a silence gap >= gapSec, on sentence final punctuation,
//on cumulative duration >= maxDurSec or on a speaker change.
func Split(words []Word, gapSec, maxDurSec float64) []Segment {
	res := make([]Segment, 0)
	var buf []Word
	var last *Word // last word seen, also across segment boundaries

	flush := func() {
		if len(buf) == 0 {
			return
		}
		res = append(res, newSegment(len(res), buf))
		buf = nil
	}

	for i := range words {
		w := words[i]
		if len(buf) > 0 && w.Speaker != "" {
			prev := buf[len(buf)-1]
			if prev.Speaker != "" && prev.Speaker != w.Speaker {
				flush()
			}
		}
		buf = append(buf, w)

		br := false
		if last != nil && w.Start-last.End >= gapSec {
			br = true
		}
		if sentenceEnd.MatchString(w.Text) {
			br = true
		}
		if w.End-buf[0].Start >= maxDurSec {
			br = true
		}
		last = &words[i]
		if br {
			flush()
		}
	}
	flush()
	return res
}

func newSegment(index int, words []Word) Segment {
	texts := make([]string, 0, len(words))
	for _, w := range words {
		texts = append(texts, w.Text)
	}
	return Segment{Index: index,
		Start:   words[0].Start,
		End:     words[len(words)-1].End,
		Text:    strings.Join(texts, " "),
		Words:   append([]Word(nil), words...),
		Speaker: words[0].Speaker}
}
