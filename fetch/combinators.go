package fetch

import "context"

// mergedFetcher bundles two Fetchers with a merge function. It has no
// Command/Decode methods and is not a Fetcher; FetchMerge does not
// construct it and drives f1 and f2 through two Fetch calls instead —
// see the doc comment there.
type mergedFetcher[In, A, B, C any] struct {
	f1    Fetcher[In, A]
	f2    Fetcher[In, B]
	merge func(A, B) C
}

// FetchMerge issues both f1 and f2's RPCs for every input concurrently
// and combines their results with merge once both legs succeed (spec
// §4.2). Because f1 and f2 address two different commands per input,
// this is implemented directly rather than by composing two calls to
// Fetch over a synthetic Fetcher[In, C] — doing so would require
// collapsing two different wire responses into one Decode call, which
// isn't expressible since In maps to two distinct command strings.
func FetchMerge[In, A, B, C any](ctx context.Context, issue Issuer, f1 Fetcher[In, A], f2 Fetcher[In, B], merge func(A, B) C, ins []In, concurrency int) ([]Pair[In, C], error) {
	type pairResult struct {
		a   A
		b   B
		err error
	}
	if len(ins) == 0 {
		return nil, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]pairResult, len(ins))
	// Each leg gets the full configured budget independently (up to
	// 2*concurrency requests in flight across both legs combined): f1
	// and f2 address different commands, so bounding them jointly would
	// make one leg's latency throttle the other's for no reason. The
	// knob still means "K in-flight RPCs of a given category" — there
	// are two categories here, each honoring it on its own.
	legConcurrency := concurrency
	if legConcurrency < 1 {
		legConcurrency = 1
	}

	aResults, aErrs := make([]A, len(ins)), make([]error, len(ins))
	bResults, bErrs := make([]B, len(ins)), make([]error, len(ins))

	done := make(chan struct{}, 2)
	go func() {
		pairs, err := Fetch(ctx, issue, f1, ins, legConcurrency)
		if err != nil {
			for i := range ins {
				aErrs[i] = err
			}
		} else {
			for i, p := range pairs {
				aResults[i] = p.Out
			}
		}
		done <- struct{}{}
	}()
	go func() {
		pairs, err := Fetch(ctx, issue, f2, ins, legConcurrency)
		if err != nil {
			for i := range ins {
				bErrs[i] = err
			}
		} else {
			for i, p := range pairs {
				bResults[i] = p.Out
			}
		}
		done <- struct{}{}
	}()
	<-done
	<-done

	for i := range ins {
		if aErrs[i] != nil {
			results[i] = pairResult{err: aErrs[i]}
			continue
		}
		if bErrs[i] != nil {
			results[i] = pairResult{err: bErrs[i]}
			continue
		}
		results[i] = pairResult{a: aResults[i], b: bResults[i]}
	}

	errs := make([]error, len(ins))
	for i, r := range results {
		errs[i] = r.err
	}
	if err := firstError(errs); err != nil {
		return nil, err
	}

	out := make([]Pair[In, C], len(ins))
	for i, in := range ins {
		out[i] = Pair[In, C]{In: in, Out: merge(results[i].a, results[i].b)}
	}
	return out, nil
}

// Tupled runs thunks (each a Fetch/FetchMerge call already bound to its
// own Fetcher and input slice) concurrently as a barrier, the N-ary
// generalization of FetchMerge's pairwise join for spec §4.2's "product
// combinator". Go's type system can't express a true variadic-arity
// generic tuple the way the spec's source language can, so Tupled takes
// pre-built result thunks instead of a list of heterogeneous Fetchers;
// chainsync.GetBlocks uses it to run the operations and votes legs of
// one page side by side.
func Tupled(thunks ...func() error) error {
	errs := make([]error, len(thunks))
	done := make(chan struct{}, len(thunks))
	for i, thunk := range thunks {
		i, thunk := i, thunk
		go func() {
			defer func() { done <- struct{}{} }()
			errs[i] = thunk()
		}()
	}
	for range thunks {
		<-done
	}
	return firstError(errs)
}
