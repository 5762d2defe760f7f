package reporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vanity-tools/gitmine/internal/digest"
	"github.com/vanity-tools/gitmine/internal/match"
)

func TestProgressFormat(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.Progress(12, 34.5, 100, 1024, 8)
	got := buf.String()
	want := "12s 34.50M/s ct=100 + 1024 x8\n"
	if got != want {
		t.Fatalf("Progress() = %q, want %q", got, want)
	}
}

func TestBestSoFarContainsBothHexDumps(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	var sha [digest.SHA1Size]byte
	var b2 [digest.Blake2bSize]byte
	for i := range sha {
		sha[i] = byte(i)
	}
	for i := range b2 {
		b2[i] = byte(i)
	}
	copy(b2[10:], sha[:4])
	r.BestSoFar(sha, b2, match.Result{OffsetInB2: 10, Length: 4})
	out := buf.String()
	if !strings.Contains(out, "sha1") || !strings.Contains(out, "blake2b") {
		t.Fatalf("missing expected labels: %q", out)
	}
}

func TestSummaryFormat(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.Summary(1, 2, 5, "abc123")
	if got := buf.String(); !strings.Contains(got, "abc123") || !strings.Contains(got, "len=5") {
		t.Fatalf("Summary() = %q", got)
	}
}

func TestWarnPrefixesMessage(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.Warn("worker %d stuck", 3)
	if got := buf.String(); got != "warning: worker 3 stuck\n" {
		t.Fatalf("Warn() = %q", got)
	}
}
