package recog

import "strings"

// RecognizedWord locates one word inside a flattened result: the offset
// into the result text where the word begins, and the absolute screen
// coordinates of its upper-left corner.
type RecognizedWord struct {
	TextOffset int `json:"offset"`
	ScreenX    int `json:"x"`
	ScreenY    int `json:"y"`
}

// Result is the flattened, immutable form of a backend's lines/words
// output. Words within a line are joined by a single space; lines carry no
// separator characters, their boundaries exist only in LineEndOffsets.
// Once built a Result is never mutated, so any number of TextViews may
// read it concurrently.
type Result struct {
	Text           string
	LineEndOffsets []int
	Words          []RecognizedWord
	OriginX        int
	OriginY        int
}

// BuildResult flattens lines of words into a Result. left and top are the
// screen origin of the capture; they are folded into every word's screen
// coordinates.
//
// Each line contributes one LineEndOffsets entry equal to the cumulative
// text length through that line, so a line with no words repeats the
// previous boundary. Words with empty text still occupy a Words entry with
// a zero-length span.
func BuildResult(lines [][]Word, left, top int) *Result {
	res := &Result{OriginX: left, OriginY: top}
	var text strings.Builder
	cursor := 0
	for _, line := range lines {
		for i, word := range line {
			if i > 0 {
				text.WriteByte(' ')
				cursor++
			}
			res.Words = append(res.Words, RecognizedWord{
				TextOffset: cursor,
				ScreenX:    left + word.X,
				ScreenY:    top + word.Y,
			})
			text.WriteString(word.Text)
			cursor += len(word.Text)
		}
		res.LineEndOffsets = append(res.LineEndOffsets, cursor)
	}
	res.Text = text.String()
	return res
}
