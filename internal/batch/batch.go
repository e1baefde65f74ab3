// Package batch runs one task per input item in fixed-width chunks. Each
// chunk shares a session opened for it and closed once every task of the
// chunk has finished; chunks run one after another in input order.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Session is the per-chunk resource shared by concurrent tasks.
type Session interface {
	Close() error
}

// Opener creates the session for one chunk.
type Opener[S Session] func(ctx context.Context) (S, error)

// Task processes one item inside a chunk session.
type Task[S Session, In, Out any] func(ctx context.Context, sess S, item In) (Out, error)

// Fallback builds the output for an item whose task failed.
type Fallback[In, Out any] func(item In, err error) Out

// Progress is reported after every chunk.
type Progress struct {
	Chunk   int
	Chunks  int
	Done    int
	Total   int
	Failed  int
	Elapsed time.Duration
	RSS     uint64
}

// Observer receives per-task and per-chunk outcomes.
type Observer interface {
	TaskDone(ok bool, d time.Duration)
	ChunkDone(size int, d time.Duration)
}

// Options tunes a Scheduler. The zero value is usable.
type Options struct {
	Logger     *zap.Logger
	OnProgress func(Progress)
	Observer   Observer
}

// Scheduler is a chunked, bounded-concurrency task runner.
type Scheduler[S Session, In, Out any] struct {
	width    int
	open     Opener[S]
	task     Task[S, In, Out]
	fallback Fallback[In, Out]
	opts     Options
}

// New returns a scheduler running width tasks at a time. width below 1 is
// treated as 1.
func New[S Session, In, Out any](width int, open Opener[S], task Task[S, In, Out], fallback Fallback[In, Out], opts Options) *Scheduler[S, In, Out] {
	if width < 1 {
		width = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scheduler[S, In, Out]{
		width:    width,
		open:     open,
		task:     task,
		fallback: fallback,
		opts:     opts,
	}
}

// Width returns the chunk width.
func (s *Scheduler[S, In, Out]) Width() int { return s.width }

// Run returns one output per item, in item order. Task failures, including
// panics, are converted through the fallback and never abort the run.
func (s *Scheduler[S, In, Out]) Run(ctx context.Context, items []In) []Out {
	out := make([]Out, len(items))
	if len(items) == 0 {
		return out
	}

	start := time.Now()
	chunks := (len(items) + s.width - 1) / s.width
	failed := 0

	for c := 0; c < chunks; c++ {
		lo := c * s.width
		hi := min(lo+s.width, len(items))

		chunkStart := time.Now()
		failed += s.runChunk(ctx, items[lo:hi], out[lo:hi])
		if s.opts.Observer != nil {
			s.opts.Observer.ChunkDone(hi-lo, time.Since(chunkStart))
		}

		if s.opts.OnProgress != nil {
			s.opts.OnProgress(Progress{
				Chunk:   c + 1,
				Chunks:  chunks,
				Done:    hi,
				Total:   len(items),
				Failed:  failed,
				Elapsed: time.Since(start),
				RSS:     residentMemory(),
			})
		}
	}
	return out
}

func (s *Scheduler[S, In, Out]) runChunk(ctx context.Context, items []In, out []Out) int {
	if err := ctx.Err(); err != nil {
		for i, item := range items {
			out[i] = s.fallback(item, err)
		}
		return len(items)
	}

	sess, err := s.open(ctx)
	if err != nil {
		s.opts.Logger.Warn("Failed to open chunk session", zap.Int("items", len(items)), zap.Error(err))
		for i, item := range items {
			out[i] = s.fallback(item, fmt.Errorf("open session: %w", err))
			s.observe(false, 0)
		}
		return len(items)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			s.opts.Logger.Warn("Failed to close chunk session", zap.Error(err))
		}
	}()

	ok := make([]bool, len(items))
	p := pool.New().WithMaxGoroutines(len(items))
	for i, item := range items {
		p.Go(func() {
			out[i], ok[i] = s.runTask(ctx, sess, item)
		})
	}
	p.Wait()

	failed := 0
	for _, v := range ok {
		if !v {
			failed++
		}
	}
	return failed
}

func (s *Scheduler[S, In, Out]) runTask(ctx context.Context, sess S, item In) (out Out, ok bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("task panic: %v", r)
			s.opts.Logger.Error("Task panicked", zap.Any("item", item), zap.Error(err))
			out, ok = s.fallback(item, err), false
		}
		s.observe(ok, time.Since(start))
	}()

	res, err := s.task(ctx, sess, item)
	if err != nil {
		s.opts.Logger.Warn("Task failed", zap.Any("item", item), zap.Error(err))
		return s.fallback(item, err), false
	}
	return res, true
}

func (s *Scheduler[S, In, Out]) observe(ok bool, d time.Duration) {
	if s.opts.Observer != nil {
		s.opts.Observer.TaskDone(ok, d)
	}
}
