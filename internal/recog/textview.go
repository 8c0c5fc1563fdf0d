package recog

import "sort"

// TextView answers offset-indexed navigation queries against an immutable
// Result. All queries are pure reads and safe for concurrent use.
//
// Line and word lookups deliberately clamp out-of-range offsets to the
// final boundary instead of failing: during navigation a caller's offset
// may briefly point past the end of the text, and downstream movement
// logic relies on getting the last line or word back rather than an error.
type TextView struct {
	res *Result
}

// NewTextView wraps a built Result for navigation.
func NewTextView(res *Result) *TextView {
	return &TextView{res: res}
}

// Text returns the full flattened text.
func (v *TextView) Text() string { return v.res.Text }

// Len returns the length of the flattened text.
func (v *TextView) Len() int { return len(v.res.Text) }

// Result exposes the underlying result tables.
func (v *TextView) Result() *Result { return v.res }

// LineRange returns the [start, end) bounds of the line containing offset:
// end is the first line boundary strictly greater than offset, start the
// boundary before it. Offsets at or past the end of the text clamp to
// (last boundary, text length).
func (v *TextView) LineRange(offset int) (start, end int) {
	ends := v.res.LineEndOffsets
	i := sort.SearchInts(ends, offset+1)
	if i == len(ends) {
		if len(ends) > 0 {
			start = ends[len(ends)-1]
		}
		return start, len(v.res.Text)
	}
	if i > 0 {
		start = ends[i-1]
	}
	return start, ends[i]
}

// WordRange returns the [start, end) bounds of the word containing offset,
// where end is the start offset of the following word. Offsets within the
// last word, or past the end of the text, clamp to
// (last word start, text length).
func (v *TextView) WordRange(offset int) (start, end int) {
	words := v.res.Words
	i := sort.Search(len(words), func(i int) bool {
		return words[i].TextOffset > offset
	})
	if i == len(words) {
		if len(words) > 0 {
			start = words[len(words)-1].TextOffset
		}
		return start, len(v.res.Text)
	}
	if i > 0 {
		start = words[i-1].TextOffset
	}
	return start, words[i].TextOffset
}

// PointAt returns the screen coordinates of the word containing offset,
// using the same bracketing as WordRange. It fails with ErrEmptyResult
// when the result has no words; any in-range offset otherwise belongs to
// some word, since word zero always starts at offset zero.
func (v *TextView) PointAt(offset int) (x, y int, err error) {
	words := v.res.Words
	if len(words) == 0 {
		return 0, 0, ErrEmptyResult
	}
	i := sort.Search(len(words), func(i int) bool {
		return words[i].TextOffset > offset
	})
	if i == 0 {
		i = 1
	}
	word := words[i-1]
	return word.ScreenX, word.ScreenY, nil
}

// TextSlice returns the text between start and end, clamping both bounds
// to the valid range the way a slice expression would.
func (v *TextView) TextSlice(start, end int) string {
	text := v.res.Text
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start >= end {
		return ""
	}
	return text[start:end]
}
