// Package cpuengine implements the CPU-bound worker pool that searches the
// (author_time, committer_time) grid for a commit whose SHA-1 digest shares
// a long common substring with its BLAKE2b digest.
package cpuengine

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vanity-tools/gitmine/internal/commitmsg"
	"github.com/vanity-tools/gitmine/internal/digest"
	"github.com/vanity-tools/gitmine/internal/match"
)

// TickOutcome reports whether the search is still running when the caller
// polls at roughly 1 Hz.
type TickOutcome int

const (
	Running TickOutcome = iota
	Done
)

// Config holds the tunables recognized by the engine.
type Config struct {
	// TerminateAt is the minimum match length that ends the search.
	TerminateAt int
	// CountDivisor is the granularity at which a worker reports progress.
	CountDivisor uint64
	// NumWorkers is the number of worker goroutines. Zero means
	// runtime.NumCPU().
	NumWorkers int
}

// DefaultConfig returns the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		TerminateAt:  5,
		CountDivisor: 16384,
		NumWorkers:   runtime.NumCPU(),
	}
}

// WinningState describes a commit variant whose match length reached the
// configured threshold.
type WinningState struct {
	Atime, Ctime int64
	MatchLen     int
	Sha1         [digest.SHA1Size]byte
	Blake2b      [digest.Blake2bSize]byte
}

// Stats is a boss-loop snapshot of aggregate progress across all workers.
type Stats struct {
	Checked              uint64
	Elapsed              time.Duration
	BestLen              int
	BestAtime, BestCtime int64
	BestSha1             [digest.SHA1Size]byte
	BestBlake2b          [digest.Blake2bSize]byte
	// BestChanged is true the first time this Stats reflects an
	// improvement over the previous tick's best.
	BestChanged bool
}

// best is an immutable snapshot of one worker's current record, swapped in
// with a single atomic store so readers never observe a torn update.
type best struct {
	length       int
	atime, ctime int64
	sha1         [digest.SHA1Size]byte
	blake2b      [digest.Blake2bSize]byte
}

type workerState struct {
	count atomic.Uint64
	best  atomic.Pointer[best]
}

// Engine drives the CPU worker pool described by spec.md §4.4.
type Engine struct {
	cfg Config

	cancel     context.CancelFunc
	wg         sync.WaitGroup
	workers    []*workerState
	matchFound atomic.Bool
	searchDone atomic.Bool

	resultCh chan WinningState
	winning  WinningState
	haveWin  bool

	startTime      time.Time
	lastReportBest int
	mu             sync.Mutex // not locked by any method; startTime is set in Start before workers launch
}

// New constructs an engine with the given configuration, filling in zero
// values from DefaultConfig.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.TerminateAt == 0 {
		cfg.TerminateAt = def.TerminateAt
	}
	if cfg.CountDivisor == 0 {
		cfg.CountDivisor = def.CountDivisor
	}
	if cfg.NumWorkers == 0 {
		cfg.NumWorkers = def.NumWorkers
	}
	return &Engine{cfg: cfg}
}

// Start normalizes the search hints against the commit's own timestamps and
// launches one worker goroutine per configured worker.
func (e *Engine) Start(ctx context.Context, commit *commitmsg.Message, atimeHint, ctimeHint int64) {
	if atimeHint < commit.Atime() {
		atimeHint = commit.Atime()
	}
	if ctimeHint < commit.Ctime() {
		ctimeHint = commit.Ctime()
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.startTime = time.Now()
	e.resultCh = make(chan WinningState, 1)

	n := e.cfg.NumWorkers
	e.workers = make([]*workerState, n)
	for i := 0; i < n; i++ {
		ws := &workerState{}
		e.workers[i] = ws
		e.wg.Add(1)
		go func(i int, ws *workerState) {
			defer e.wg.Done()
			e.runWorker(ctx, i, n, commit, atimeHint, ctimeHint, ws)
		}(i, ws)
	}

	go func() {
		e.wg.Wait()
		e.searchDone.Store(true)
	}()
}

// runWorker is worker i of n. It owns a private clone of commit and steps
// through its atime partition, incrementing ctime once the partition is
// exhausted, until it finds a terminating match or the context is
// cancelled. When atime has already caught up with ctime — the common case,
// since a normal "git commit" stamps both with the same epoch — there is no
// atime range left to partition, so it instead partitions the open-ended
// ctime range across workers with atime pinned, the CPU engine's analogue
// of the GPU engine's A_LOCKSTEP mode.
func (e *Engine) runWorker(ctx context.Context, i, n int, commit *commitmsg.Message, atimeHint, ctimeHint int64, ws *workerState) {
	noodle := commit.Clone()
	var localCount uint64

	span := ctimeHint - atimeHint
	if span <= 0 {
		noodle.SetAtime(atimeHint)
		ctimeStart := ctimeHint
		if ctimeStart < atimeHint {
			ctimeStart = atimeHint
		}
		for ctime := ctimeStart + int64(i); ; ctime += int64(n) {
			select {
			case <-ctx.Done():
				return
			default:
			}
			noodle.SetCtime(ctime)
			if e.attempt(noodle, atimeHint, ctime, ws, &localCount) {
				return
			}
		}
	}

	noodle.SetCtime(ctimeHint)
	workStart := atimeHint + (int64(i)*span)/int64(n)
	workEnd := atimeHint + (int64(i+1)*span)/int64(n)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		for t := workStart; t < workEnd; t++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			noodle.SetAtime(t)
			if e.attempt(noodle, t, noodle.Ctime(), ws, &localCount) {
				return
			}
		}
		noodle.SetCtime(noodle.Ctime() + 1)
	}
}

// attempt hashes noodle's current serialization for the given (atime,
// ctime) pair, records it as the worker's best if it improves on the
// previous one, and reports a terminating match on resultCh. It returns
// true once the worker should stop: either a terminating match was found
// here, or another worker already found one.
func (e *Engine) attempt(noodle *commitmsg.Message, atime, ctime int64, ws *workerState, localCount *uint64) bool {
	ser := noodle.Serialize()
	sha := digest.Sha1Sum(ser)
	b2 := digest.Blake2bSum(ser)
	result := match.Longest(sha[:], b2[:])

	(*localCount)++
	if *localCount >= e.cfg.CountDivisor {
		ws.count.Add(*localCount)
		*localCount = 0
		if e.matchFound.Load() {
			return true
		}
	}

	cur := ws.best.Load()
	if cur == nil || int(result.Length) > cur.length {
		ws.best.Store(&best{
			length:  int(result.Length),
			atime:   atime,
			ctime:   ctime,
			sha1:    sha,
			blake2b: b2,
		})
	}

	if int(result.Length) >= e.cfg.TerminateAt {
		if e.matchFound.CompareAndSwap(false, true) {
			e.resultCh <- WinningState{
				Atime:    atime,
				Ctime:    ctime,
				MatchLen: int(result.Length),
				Sha1:     sha,
				Blake2b:  b2,
			}
		}
		ws.count.Add(*localCount)
		return true
	}
	return false
}

// Tick aggregates every worker's counter and best-so-far, matching the
// boss's 1 Hz wakeup. Call it roughly once a second until it returns Done.
func (e *Engine) Tick() (Stats, TickOutcome) {
	var checked uint64
	bestLen := -1
	var bestAtime, bestCtime int64
	var bestSha1 [digest.SHA1Size]byte
	var bestBlake2b [digest.Blake2bSize]byte

	for _, ws := range e.workers {
		checked += ws.count.Load()
		if b := ws.best.Load(); b != nil && b.length > bestLen {
			bestLen = b.length
			bestAtime, bestCtime = b.atime, b.ctime
			bestSha1, bestBlake2b = b.sha1, b.blake2b
		}
	}
	if bestLen < 0 {
		bestLen = 0
	}

	changed := bestLen > e.lastReportBest
	if changed {
		e.lastReportBest = bestLen
	}

	stats := Stats{
		Checked:     checked,
		Elapsed:     time.Since(e.startTime),
		BestLen:     bestLen,
		BestAtime:   bestAtime,
		BestCtime:   bestCtime,
		BestSha1:    bestSha1,
		BestBlake2b: bestBlake2b,
		BestChanged: changed,
	}

	select {
	case w := <-e.resultCh:
		e.winning = w
		e.haveWin = true
		return stats, Done
	default:
	}

	if e.searchDone.Load() {
		select {
		case w := <-e.resultCh:
			e.winning = w
			e.haveWin = true
		default:
		}
		return stats, Done
	}
	return stats, Running
}

// Stop requests every worker to exit and waits, with a bounded patience, for
// them to do so.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	const patienceTicks = 5
	select {
	case <-done:
	case <-time.After(patienceTicks * time.Second):
		// Workers failed to exit within the patience window; give up
		// waiting on them rather than block the caller forever.
	}
}

// WinningState returns the match that ended the search, if any.
func (e *Engine) WinningState() (WinningState, bool) {
	return e.winning, e.haveWin
}
