// Package fetch implements the DataFetcher primitive of spec §4.2: a
// generic, typed batch-fetch abstraction parameterized by (In, Out)
// that issues one RPC per input with bounded concurrency and returns
// results in input order. Concurrency is bounded with
// golang.org/x/sync/semaphore, the teacher's own dependency for exactly
// this "bounded worker queue belongs to the adapter, not the fetcher
// algebra" concern (spec §9).
package fetch

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Fetcher knows how to translate one In into a command string and
// decode that command's raw response into an Out.
type Fetcher[In, Out any] interface {
	Command(in In) string
	Decode(raw []byte) (Out, error)
}

// Issuer executes a single RPC command and returns its raw response.
// rpc.Handler.Get satisfies this directly.
type Issuer func(ctx context.Context, command string) ([]byte, error)

// Pair is one (input, output) correlation, preserving In's identity
// alongside its decoded result.
type Pair[In, Out any] struct {
	In  In
	Out Out
}

// Fetch issues one RPC per element of ins with at most concurrency
// in-flight at a time (additional inputs wait FIFO behind the
// semaphore), and returns results in the same order as ins. Every item
// runs to completion even after a sibling fails — pages are bounded by
// blockPageSize so the wasted work is small — and the whole batch then
// fails with the lowest-input-index error (spec §4.2: "fail-fast ...
// tie-break is by input index"). The only early exit is the caller's
// own ctx being cancelled (shutdown).
func Fetch[In, Out any](ctx context.Context, issue Issuer, f Fetcher[In, Out], ins []In, concurrency int) ([]Pair[In, Out], error) {
	if len(ins) == 0 {
		return nil, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	out := make([]Pair[In, Out], len(ins))
	errs := make([]error, len(ins))
	sem := semaphore.NewWeighted(int64(concurrency))

	done := make(chan struct{}, len(ins))
	for i, in := range ins {
		i, in := i, in
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			done <- struct{}{}
			continue
		}
		go func() {
			defer sem.Release(1)
			defer func() { done <- struct{}{} }()

			raw, err := issue(ctx, f.Command(in))
			if err != nil {
				errs[i] = err
				return
			}
			decoded, err := f.Decode(raw)
			if err != nil {
				errs[i] = err
				return
			}
			out[i] = Pair[In, Out]{In: in, Out: decoded}
		}()
	}
	for range ins {
		<-done
	}

	if err := firstError(errs); err != nil {
		return nil, err
	}
	return out, nil
}

// firstError returns the lowest-index non-nil error in errs.
func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
