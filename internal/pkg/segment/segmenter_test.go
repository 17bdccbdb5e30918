package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit_Empty(t *testing.T) {
	res := Split(nil, 0.6, 10)
	assert.Equal(t, 0, len(res))
	res = Split([]Word{}, 0.6, 10)
	assert.Equal(t, 0, len(res))
}

func TestSplit_Punctuation(t *testing.T) {
	res := Split(testWords(), 0.6, 10)
	assert.Equal(t, 2, len(res))
	assert.Equal(t, "the quick fox.", res[0].Text)
	assert.Equal(t, 0.0, res[0].Start)
	assert.Equal(t, 0.9, res[0].End)
	assert.Equal(t, "jumps", res[1].Text)
	assert.Equal(t, 3.0, res[1].Start)
	assert.Equal(t, 3.3, res[1].End)
}

func TestSplit_Indexes(t *testing.T) {
	res := Split(testWords(), 0.6, 10)
	for i, s := range res {
		assert.Equal(t, i, s.Index)
	}
}

func TestSplit_NoGapNoBreak(t *testing.T) {
	words := []Word{w("one", 0, 0.5), w("two", 0.6, 1.0), w("three", 1.1, 1.5)}
	res := Split(words, 0.6, 100)
	assert.Equal(t, 1, len(res))
	assert.Equal(t, "one two three", res[0].Text)
}

func TestSplit_GapEndsSegment(t *testing.T) {
	words := []Word{w("one", 0, 0.5), w("two", 2.0, 2.5), w("three", 2.6, 3.0)}
	res := Split(words, 1.0, 100)
	assert.Equal(t, 2, len(res))
	assert.Equal(t, "one two", res[0].Text)
	assert.Equal(t, "three", res[1].Text)
}

func TestSplit_MaxDuration(t *testing.T) {
	words := []Word{w("one", 0, 2), w("two", 2, 4), w("three", 4, 6), w("four", 6, 8)}
	res := Split(words, 100, 5)
	assert.Equal(t, 2, len(res))
	assert.Equal(t, "one two three", res[0].Text)
	assert.Equal(t, "four", res[1].Text)
}

func TestSplit_SingleLongWord(t *testing.T) {
	words := []Word{w("looong", 0, 20)}
	res := Split(words, 0.6, 10)
	assert.Equal(t, 1, len(res))
	assert.Equal(t, "looong", res[0].Text)
}

func TestSplit_SpeakerChange(t *testing.T) {
	words := []Word{ws("hello", 0, 0.5, "S1"), ws("there", 0.6, 1.0, "S1"),
		ws("hi", 1.1, 1.4, "S2")}
	res := Split(words, 10, 100)
	assert.Equal(t, 2, len(res))
	assert.Equal(t, "hello there", res[0].Text)
	assert.Equal(t, "S1", res[0].Speaker)
	assert.Equal(t, "hi", res[1].Text)
	assert.Equal(t, "S2", res[1].Speaker)
}

func TestSplit_NoSpeakerNoChange(t *testing.T) {
	words := []Word{ws("hello", 0, 0.5, "S1"), w("there", 0.6, 1.0),
		ws("hi", 1.1, 1.4, "S2")}
	res := Split(words, 10, 100)
	assert.Equal(t, 1, len(res))
	assert.Equal(t, "hello there hi", res[0].Text)
}

func TestSplit_CoversAllWords(t *testing.T) {
	words := []Word{w("a", 0, 0.1), w("b.", 0.2, 0.3), w("c", 1.5, 1.7),
		ws("d", 1.8, 2.0, "S1"), ws("e!", 2.1, 2.2, "S2"), w("f", 2.3, 30)}
	res := Split(words, 0.6, 5)
	got := make([]Word, 0)
	for _, s := range res {
		got = append(got, s.Words...)
	}
	assert.Equal(t, words, got)
}

func testWords() []Word {
	return []Word{w("the", 0.0, 0.2), w("quick", 0.25, 0.5),
		w("fox.", 0.55, 0.9), w("jumps", 3.0, 3.3)}
}

func w(text string, start, end float64) Word {
	return Word{Text: text, Start: start, End: end}
}

func ws(text string, start, end float64, speaker string) Word {
	return Word{Text: text, Start: start, End: end, Speaker: speaker}
}
