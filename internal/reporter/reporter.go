// Package reporter formats progress lines and the final match summary
// printed to stderr while a search runs.
package reporter

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	fasthex "github.com/tmthrgd/go-hex"

	"github.com/vanity-tools/gitmine/internal/digest"
	"github.com/vanity-tools/gitmine/internal/match"
)

// Reporter writes human-readable progress to an io.Writer, normally
// os.Stderr.
type Reporter struct {
	w io.Writer

	highlight func(format string, a ...interface{}) string
}

// New returns a Reporter writing to w. Highlighting follows fatih/color's
// terminal-detection rules, which look at os.Stdout and NO_COLOR rather
// than at w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w, highlight: color.New(color.FgRed, color.Bold).SprintfFunc()}
}

// Progress prints the ≈1 Hz line: "<t>s <rate>M/s ct=<ctime> + <ctime_count> x<num_workers>".
func (r *Reporter) Progress(elapsedSec float64, mHashPerSec float64, ctime int64, ctimeCount int64, numWorkers int) {
	fmt.Fprintf(r.w, "%.0fs %.2fM/s ct=%d + %d x%d\n", elapsedSec, mHashPerSec, ctime, ctimeCount, numWorkers)
}

// BestSoFar dumps the SHA-1 and BLAKE2b hex of the current best candidate,
// highlighting the SHA-1 prefix that matched and the corresponding span
// within the BLAKE2b hex.
func (r *Reporter) BestSoFar(sha1 [digest.SHA1Size]byte, b2 [digest.Blake2bSize]byte, m match.Result) {
	shaHex := fasthex.EncodeToString(sha1[:])
	b2Hex := fasthex.EncodeToString(b2[:])

	shaHiEnd := 2 * int(m.Length)
	if shaHiEnd > len(shaHex) {
		shaHiEnd = len(shaHex)
	}
	b2Start := 2 * int(m.OffsetInB2)
	b2End := b2Start + 2*int(m.Length)
	if b2End > len(b2Hex) {
		b2End = len(b2Hex)
	}
	if b2Start > b2End {
		b2Start = b2End
	}

	fmt.Fprintf(r.w, "sha1    %s%s\n", r.highlight("%s", shaHex[:shaHiEnd]), shaHex[shaHiEnd:])
	fmt.Fprintf(r.w, "blake2b %s%s%s\n", b2Hex[:b2Start], r.highlight("%s", b2Hex[b2Start:b2End]), b2Hex[b2End:])
}

// Summary prints the final line once a match has been accepted and handed
// off to the commit invoker.
func (r *Reporter) Summary(atime, ctime int64, matchLen int, sha1Hex string) {
	fmt.Fprintf(r.w, "found match len=%d atime=%d ctime=%d -> %s\n", matchLen, atime, ctime, sha1Hex)
}

// Warn prints a non-fatal warning, e.g. a GPU self-test failure that makes
// the search fall back to the CPU engine.
func (r *Reporter) Warn(format string, a ...interface{}) {
	fmt.Fprintf(r.w, "warning: "+format+"\n", a...)
}
