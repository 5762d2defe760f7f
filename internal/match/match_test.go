package match

import (
	"bytes"
	"testing"
)

func TestEmptyNeedleYieldsZero(t *testing.T) {
	r := Longest(nil, []byte{1, 2, 3})
	if r.Length != 0 || r.OffsetInB2 != 0 {
		t.Fatalf("empty needle: got %+v, want zero", r)
	}
}

func TestEmptyHayYieldsZero(t *testing.T) {
	r := Longest([]byte{1, 2, 3}, nil)
	if r.Length != 0 || r.OffsetInB2 != 0 {
		t.Fatalf("empty hay: got %+v, want zero", r)
	}
}

func TestNoMatchYieldsZero(t *testing.T) {
	needle := bytes.Repeat([]byte{0xAA}, 20)
	hay := bytes.Repeat([]byte{0x55}, 64)
	r := Longest(needle, hay)
	if r.Length != 0 || r.OffsetInB2 != 0 {
		t.Fatalf("disjoint alphabets: got %+v, want zero", r)
	}
}

func TestIdenticalBytesMatchesMinLength(t *testing.T) {
	needle := bytes.Repeat([]byte{0x42}, 20)
	hay := bytes.Repeat([]byte{0x42}, 64)
	r := Longest(needle, hay)
	if r.Length != 20 {
		t.Fatalf("Length = %d, want 20 (min(len(needle), len(hay)))", r.Length)
	}
	if r.OffsetInB2 != 0 {
		t.Fatalf("OffsetInB2 = %d, want 0", r.OffsetInB2)
	}
}

func TestFirstOccurrenceWinsTie(t *testing.T) {
	needle := []byte{0x01, 0x02, 0x03}
	hay := []byte{0xFF, 0x01, 0x02, 0x03, 0xFF, 0x01, 0x02, 0x03, 0xFF}
	r := Longest(needle, hay)
	if r.OffsetInB2 != 1 {
		t.Fatalf("OffsetInB2 = %d, want 1 (first occurrence)", r.OffsetInB2)
	}
	if r.Length != 3 {
		t.Fatalf("Length = %d, want 3", r.Length)
	}
}

func TestLongerLaterMatchWins(t *testing.T) {
	needle := []byte{0x01, 0x02, 0x03, 0x04}
	hay := []byte{0x01, 0x02, 0xFF, 0x01, 0x02, 0x03, 0x04}
	r := Longest(needle, hay)
	if r.OffsetInB2 != 3 {
		t.Fatalf("OffsetInB2 = %d, want 3", r.OffsetInB2)
	}
	if r.Length != 4 {
		t.Fatalf("Length = %d, want 4", r.Length)
	}
}

func TestPartialMatchAtEndOfHay(t *testing.T) {
	needle := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	hay := []byte{0x00, 0x01, 0x02, 0x03}
	r := Longest(needle, hay)
	if r.Length != 3 {
		t.Fatalf("Length = %d, want 3 (truncated by end of hay)", r.Length)
	}
	if r.OffsetInB2 != 1 {
		t.Fatalf("OffsetInB2 = %d, want 1", r.OffsetInB2)
	}
}

func TestSingleByteMatch(t *testing.T) {
	needle := []byte{0x99}
	hay := []byte{0x00, 0x99, 0x00}
	r := Longest(needle, hay)
	if r.Length != 1 || r.OffsetInB2 != 1 {
		t.Fatalf("got %+v, want {offset:1 length:1}", r)
	}
}
