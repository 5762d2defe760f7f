// Command gitmine reads an unsigned git commit object on stdin, searches
// (author_time, committer_time) pairs for one whose SHA-1 digest shares a
// long common substring with its BLAKE2b digest, and persists the winner
// with "git commit-tree".
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	fasthex "github.com/tmthrgd/go-hex"

	"github.com/vanity-tools/gitmine/internal/commitmsg"
	"github.com/vanity-tools/gitmine/internal/config"
	"github.com/vanity-tools/gitmine/internal/cpuengine"
	"github.com/vanity-tools/gitmine/internal/gitinvoke"
	"github.com/vanity-tools/gitmine/internal/gpuengine"
	"github.com/vanity-tools/gitmine/internal/match"
	"github.com/vanity-tools/gitmine/internal/reporter"
	"github.com/vanity-tools/gitmine/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gitmine: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	atimeHint, ctimeHint, err := parseHints(os.Args[1:])
	if err != nil {
		return err
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read commit object from stdin: %w", err)
	}
	commit, err := commitmsg.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse commit object: %w", err)
	}
	if atimeHint == 0 {
		atimeHint = commit.Atime()
	}
	if ctimeHint == 0 {
		ctimeHint = commit.Ctime()
	}

	cfg := config.Load()
	rep := reporter.New(os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	win, workersUsed, usedGPU, attempts, elapsed, err := search(ctx, commit, atimeHint, ctimeHint, cfg, rep)
	if err != nil {
		return err
	}

	final := commit.Clone()
	final.SetAtime(win.Atime)
	final.SetCtime(win.Ctime)
	if err := final.Validate(); err != nil {
		return fmt.Errorf("BUG: invalid winning state: %w", err)
	}

	sha1Hex := fasthex.EncodeToString(win.Sha1[:])
	rep.Summary(win.Atime, win.Ctime, win.MatchLen, sha1Hex)

	authorName, authorEmail, err := final.AuthorNameEmail()
	if err != nil {
		return fmt.Errorf("BUG: %w", err)
	}
	committerName, committerEmail, err := final.CommitterNameEmail()
	if err != nil {
		return fmt.Errorf("BUG: %w", err)
	}
	env := gitinvoke.Env{
		AuthorName:     authorName,
		AuthorEmail:    authorEmail,
		AuthorDate:     final.AuthorDate(),
		CommitterName:  committerName,
		CommitterEmail: committerEmail,
		CommitterDate:  final.CommitterDate(),
	}

	// LogBody is the blank-line separator plus the message; git commit-tree
	// inserts its own separator between the header and stdin, so only the
	// message itself is streamed, or the object gets a doubled blank line.
	message := bytes.TrimPrefix(final.LogBody(), []byte("\n"))

	inv := gitinvoke.New()
	oid, err := inv.CreateCommit(ctx, env, final.TreeHex(), final.ParentHex(), message, sha1Hex)
	if err != nil {
		return fmt.Errorf("persist commit: %w", err)
	}
	fmt.Println(oid)

	if cfg.TelemetryOptedIn {
		telemetry.Submit(telemetry.Payload{
			MatchLength:     win.MatchLen,
			DurationSeconds: elapsed.Seconds(),
			WorkersUsed:     workersUsed,
			UsedGPU:         usedGPU,
			Attempts:        attempts,
		})
	}
	return nil
}

// parseHints validates the "gitmine [atime_hint ctime_hint]" argument form:
// zero or exactly two decimal arguments.
func parseHints(args []string) (atime, ctime int64, err error) {
	switch len(args) {
	case 0:
		return 0, 0, nil
	case 2:
	default:
		return 0, 0, fmt.Errorf("usage: gitmine [atime_hint ctime_hint]")
	}
	atime, err = strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("atime_hint: %w", err)
	}
	ctime, err = strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("ctime_hint: %w", err)
	}
	return atime, ctime, nil
}

// search runs the GPU pipeline when the operator has opted in with
// PreferGPU and a device is available and passes its self-test, falling
// back to the CPU worker pool otherwise.
func search(ctx context.Context, commit *commitmsg.Message, atimeHint, ctimeHint int64, cfg *config.Config, rep *reporter.Reporter) (win cpuengine.WinningState, workersUsed int, usedGPU bool, attempts uint64, elapsed time.Duration, err error) {
	if cfg.PreferGPU {
		if dev, devErr := gpuengine.SelectDevice(); devErr == nil {
			defer dev.Close()
			if selfErr := gpuengine.SelfTest(dev, commit); selfErr != nil {
				rep.Warn("GPU self-test failed, falling back to CPU: %v", selfErr)
			} else {
				return runGPU(dev, commit, atimeHint, ctimeHint, cfg, rep)
			}
		} else {
			rep.Warn("no usable GPU device (%v), falling back to CPU", devErr)
		}
	}
	return runCPU(ctx, commit, atimeHint, ctimeHint, cfg, rep)
}

func runCPU(ctx context.Context, commit *commitmsg.Message, atimeHint, ctimeHint int64, cfg *config.Config, rep *reporter.Reporter) (cpuengine.WinningState, int, bool, uint64, time.Duration, error) {
	ecfg := cpuengine.DefaultConfig()
	if cfg.NumWorkers > 0 {
		ecfg.NumWorkers = cfg.NumWorkers
	}
	if cfg.TerminateAt > 0 {
		ecfg.TerminateAt = cfg.TerminateAt
	}
	if cfg.CountDivisor > 0 {
		ecfg.CountDivisor = uint64(cfg.CountDivisor)
	}

	eng := cpuengine.New(ecfg)
	eng.Start(ctx, commit, atimeHint, ctimeHint)
	defer eng.Stop()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return cpuengine.WinningState{}, 0, false, 0, 0, ctx.Err()
		case <-ticker.C:
			stats, outcome := eng.Tick()
			mHashPerSec := float64(stats.Checked) / stats.Elapsed.Seconds() / 1e6
			rep.Progress(stats.Elapsed.Seconds(), mHashPerSec, ctimeHint, 0, ecfg.NumWorkers)
			if stats.BestChanged {
				rep.BestSoFar(stats.BestSha1, stats.BestBlake2b, match.Longest(stats.BestSha1[:], stats.BestBlake2b[:]))
			}
			if outcome == cpuengine.Done {
				win, ok := eng.WinningState()
				if !ok {
					return cpuengine.WinningState{}, 0, false, 0, 0, fmt.Errorf("BUG: search reported done without a winning state")
				}
				return win, ecfg.NumWorkers, false, stats.Checked, stats.Elapsed, nil
			}
		}
	}
}

func runGPU(dev gpuengine.Device, commit *commitmsg.Message, atimeHint, ctimeHint int64, cfg *config.Config, rep *reporter.Reporter) (cpuengine.WinningState, int, bool, uint64, time.Duration, error) {
	terminateAt := cfg.TerminateAt
	if terminateAt <= 0 {
		terminateAt = gpuengine.MinMatchLen
	}
	initialWorkers := cfg.NumWorkers
	if initialWorkers <= 0 {
		initialWorkers = dev.MaxComputeUnits()
	}

	start := time.Now()
	pipe := gpuengine.NewPipeline(dev, commit, atimeHint, ctimeHint, initialWorkers, terminateAt)
	win, stats, err := pipe.Run()
	if err != nil {
		return cpuengine.WinningState{}, 0, true, 0, 0, err
	}
	elapsed := time.Since(start)
	rep.Progress(elapsed.Seconds(), stats.WorkRate/1e6, stats.CtimeStart, stats.CtimeCount, stats.NumWorkers)
	if stats.FalsePositives > 0 {
		rep.Warn("kernel reported %d candidate(s) that did not reproduce on CPU", stats.FalsePositives)
	}
	return cpuengine.WinningState(win), stats.NumWorkers, true, 0, elapsed, nil
}

