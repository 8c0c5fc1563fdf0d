package recog

import "testing"

func TestBuildResultSingleWord(t *testing.T) {
	lines := [][]Word{{{X: 106, Y: 91, Width: 11, Height: 9, Text: "Hello"}}}
	res := BuildResult(lines, 10, 20)

	if res.Text != "Hello" {
		t.Fatalf("expected text %q, got %q", "Hello", res.Text)
	}
	if len(res.Words) != 1 {
		t.Fatalf("expected 1 word, got %d", len(res.Words))
	}
	word := res.Words[0]
	if word.TextOffset != 0 {
		t.Fatalf("expected offset 0, got %d", word.TextOffset)
	}
	if word.ScreenX != 116 || word.ScreenY != 111 {
		t.Fatalf("expected screen point (116, 111), got (%d, %d)", word.ScreenX, word.ScreenY)
	}
	if len(res.LineEndOffsets) != 1 || res.LineEndOffsets[0] != 5 {
		t.Fatalf("expected line ends [5], got %v", res.LineEndOffsets)
	}
	if res.OriginX != 10 || res.OriginY != 20 {
		t.Fatalf("expected origin (10, 20), got (%d, %d)", res.OriginX, res.OriginY)
	}
}

func TestBuildResultTwoLines(t *testing.T) {
	lines := [][]Word{
		{{Text: "Word1"}, {Text: "Word2"}},
		{{Text: "Word3"}},
	}
	res := BuildResult(lines, 0, 0)

	// Lines are stored without separator characters, so the second line
	// starts immediately after the first.
	if res.Text != "Word1 Word2Word3" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	wantEnds := []int{11, 16}
	if len(res.LineEndOffsets) != len(wantEnds) {
		t.Fatalf("expected line ends %v, got %v", wantEnds, res.LineEndOffsets)
	}
	for i, want := range wantEnds {
		if res.LineEndOffsets[i] != want {
			t.Fatalf("expected line ends %v, got %v", wantEnds, res.LineEndOffsets)
		}
	}
	wantOffsets := []int{0, 6, 11}
	if len(res.Words) != len(wantOffsets) {
		t.Fatalf("expected %d words, got %d", len(wantOffsets), len(res.Words))
	}
	for i, want := range wantOffsets {
		if res.Words[i].TextOffset != want {
			t.Fatalf("expected word offsets %v, got offset %d at index %d", wantOffsets, res.Words[i].TextOffset, i)
		}
	}
}

func TestBuildResultEmptyInput(t *testing.T) {
	res := BuildResult(nil, 5, 5)
	if res.Text != "" {
		t.Fatalf("expected empty text, got %q", res.Text)
	}
	if len(res.LineEndOffsets) != 0 {
		t.Fatalf("expected no line ends, got %v", res.LineEndOffsets)
	}
	if len(res.Words) != 0 {
		t.Fatalf("expected no words, got %v", res.Words)
	}
}

func TestBuildResultEmptyLineRepeatsBoundary(t *testing.T) {
	lines := [][]Word{
		{{Text: "First"}},
		{},
		{{Text: "Last"}},
	}
	res := BuildResult(lines, 0, 0)
	if res.Text != "FirstLast" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	wantEnds := []int{5, 5, 9}
	for i, want := range wantEnds {
		if res.LineEndOffsets[i] != want {
			t.Fatalf("expected line ends %v, got %v", wantEnds, res.LineEndOffsets)
		}
	}
}

func TestBuildResultEmptyWordKeepsOffset(t *testing.T) {
	lines := [][]Word{{{Text: "a"}, {Text: ""}, {Text: "b"}}}
	res := BuildResult(lines, 0, 0)

	// The empty word still gets its separator space and a zero-length span.
	if res.Text != "a  b" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	wantOffsets := []int{0, 2, 3}
	for i, want := range wantOffsets {
		if res.Words[i].TextOffset != want {
			t.Fatalf("expected word offsets %v, got %d at index %d", wantOffsets, res.Words[i].TextOffset, i)
		}
	}
}

func TestBuildResultInvariants(t *testing.T) {
	lines := [][]Word{
		{{Text: "alpha"}, {Text: "beta"}, {Text: "gamma"}},
		{{Text: "delta"}},
		{{Text: "epsilon"}, {Text: "zeta"}},
	}
	res := BuildResult(lines, 0, 0)

	for i := 1; i < len(res.LineEndOffsets); i++ {
		if res.LineEndOffsets[i] <= res.LineEndOffsets[i-1] {
			t.Fatalf("line ends not strictly increasing: %v", res.LineEndOffsets)
		}
	}
	if last := res.LineEndOffsets[len(res.LineEndOffsets)-1]; last != len(res.Text) {
		t.Fatalf("final line end %d does not equal text length %d", last, len(res.Text))
	}
	for i := 1; i < len(res.Words); i++ {
		if res.Words[i].TextOffset <= res.Words[i-1].TextOffset {
			t.Fatalf("word offsets not strictly increasing at index %d", i)
		}
	}
}
