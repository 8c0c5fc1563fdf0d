package recog

import (
	"errors"
	"testing"
)

// twoLineResult builds "Word1 Word2Word3" with line ends [11, 16] and
// word offsets [0, 6, 11]. Lines carry no separator, so the second line
// starts immediately after the first.
func twoLineResult() *Result {
	return BuildResult([][]Word{
		{{X: 1, Y: 2, Text: "Word1"}, {X: 30, Y: 2, Text: "Word2"}},
		{{X: 1, Y: 14, Text: "Word3"}},
	}, 100, 200)
}

func TestLineRange(t *testing.T) {
	view := NewTextView(twoLineResult())

	cases := []struct {
		offset     int
		start, end int
	}{
		{0, 0, 11},
		{5, 0, 11},
		{10, 0, 11},
		{11, 11, 16},
		{15, 11, 16},
	}
	for _, c := range cases {
		start, end := view.LineRange(c.offset)
		if start != c.start || end != c.end {
			t.Fatalf("LineRange(%d) = (%d, %d), expected (%d, %d)", c.offset, start, end, c.start, c.end)
		}
	}
}

func TestLineRangeClampsPastEnd(t *testing.T) {
	view := NewTextView(twoLineResult())

	// Offsets at or past the end of the text clamp to the final boundary
	// instead of failing.
	for _, offset := range []int{16, 17, 100} {
		start, end := view.LineRange(offset)
		if start != 16 || end != 16 {
			t.Fatalf("LineRange(%d) = (%d, %d), expected clamp to (16, 16)", offset, start, end)
		}
	}
}

func TestWordRange(t *testing.T) {
	view := NewTextView(twoLineResult())

	cases := []struct {
		offset     int
		start, end int
	}{
		{0, 0, 6},
		{5, 0, 6},
		{6, 6, 11},
		{10, 6, 11},
	}
	for _, c := range cases {
		start, end := view.WordRange(c.offset)
		if start != c.start || end != c.end {
			t.Fatalf("WordRange(%d) = (%d, %d), expected (%d, %d)", c.offset, start, end, c.start, c.end)
		}
	}
}

func TestWordRangeLastWordAndPastEnd(t *testing.T) {
	view := NewTextView(twoLineResult())

	for _, offset := range []int{11, 13, 15, 16, 100} {
		start, end := view.WordRange(offset)
		if start != 11 || end != 16 {
			t.Fatalf("WordRange(%d) = (%d, %d), expected (11, 16)", offset, start, end)
		}
	}
}

func TestPointAt(t *testing.T) {
	view := NewTextView(twoLineResult())

	cases := []struct {
		offset int
		x, y   int
	}{
		{0, 101, 202},
		{5, 101, 202},
		{6, 130, 202},
		{11, 101, 214},
		{100, 101, 214},
	}
	for _, c := range cases {
		x, y, err := view.PointAt(c.offset)
		if err != nil {
			t.Fatalf("PointAt(%d): unexpected error %v", c.offset, err)
		}
		if x != c.x || y != c.y {
			t.Fatalf("PointAt(%d) = (%d, %d), expected (%d, %d)", c.offset, x, y, c.x, c.y)
		}
	}
}

func TestPointAtEmptyResult(t *testing.T) {
	view := NewTextView(BuildResult(nil, 0, 0))
	if _, _, err := view.PointAt(0); !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
}

func TestTextSlice(t *testing.T) {
	view := NewTextView(twoLineResult())

	if got := view.TextSlice(0, view.Len()); got != view.Text() {
		t.Fatalf("full slice %q does not round-trip text %q", got, view.Text())
	}
	if got := view.TextSlice(6, 11); got != "Word2" {
		t.Fatalf("expected %q, got %q", "Word2", got)
	}
	if got := view.TextSlice(11, 99); got != "Word3" {
		t.Fatalf("expected clamped slice %q, got %q", "Word3", got)
	}
	if got := view.TextSlice(-3, 5); got != "Word1" {
		t.Fatalf("expected clamped slice %q, got %q", "Word1", got)
	}
	if got := view.TextSlice(9, 4); got != "" {
		t.Fatalf("expected empty slice, got %q", got)
	}
}

func TestLineRangeEmptyLines(t *testing.T) {
	// An empty trailing line repeats the previous boundary; range queries
	// must tolerate the duplicate.
	res := BuildResult([][]Word{
		{{Text: "First"}},
		{},
	}, 0, 0)
	view := NewTextView(res)

	start, end := view.LineRange(2)
	if start != 0 || end != 5 {
		t.Fatalf("LineRange(2) = (%d, %d), expected (0, 5)", start, end)
	}
	start, end = view.LineRange(5)
	if start != 5 || end != 5 {
		t.Fatalf("LineRange(5) = (%d, %d), expected (5, 5)", start, end)
	}
}
