package fetch

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type doubleFetcher struct{}

func (doubleFetcher) Command(in int) string    { return strconv.Itoa(in) }
func (doubleFetcher) Decode(raw []byte) (int, error) {
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, err
	}
	return n * 2, nil
}

func echoIssuer(ctx context.Context, command string) ([]byte, error) {
	return []byte(command), nil
}

func TestFetchPreservesOrder(t *testing.T) {
	ins := []int{5, 1, 9, 3, 7}
	out, err := Fetch[int, int](context.Background(), echoIssuer, doubleFetcher{}, ins, 2)
	require.NoError(t, err)
	require.Len(t, out, len(ins))
	for i, in := range ins {
		require.Equal(t, in, out[i].In)
		require.Equal(t, in*2, out[i].Out)
	}
}

func TestFetchEmptyInput(t *testing.T) {
	out, err := Fetch[int, int](context.Background(), echoIssuer, doubleFetcher{}, nil, 4)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestFetchBoundsConcurrency(t *testing.T) {
	var inFlight, maxInFlight int32
	issuer := func(ctx context.Context, command string) ([]byte, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			cur := atomic.LoadInt32(&maxInFlight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
				break
			}
		}
		return []byte(command), nil
	}
	ins := make([]int, 50)
	for i := range ins {
		ins[i] = i
	}
	_, err := Fetch[int, int](context.Background(), issuer, doubleFetcher{}, ins, 3)
	require.NoError(t, err)
	require.LessOrEqual(t, int(maxInFlight), 3)
}

func TestFetchFailFastLowestIndexWins(t *testing.T) {
	issuer := func(ctx context.Context, command string) ([]byte, error) {
		if command == "2" || command == "4" {
			return nil, fmt.Errorf("boom at %s", command)
		}
		return []byte(command), nil
	}
	ins := []int{1, 2, 3, 4, 5}
	_, err := Fetch[int, int](context.Background(), issuer, doubleFetcher{}, ins, 5)
	require.EqualError(t, err, "boom at 2")
}

type pairFetcher struct{ suffix string }

func (p pairFetcher) Command(in int) string { return strconv.Itoa(in) + p.suffix }
func (p pairFetcher) Decode(raw []byte) (string, error) { return string(raw), nil }

func TestFetchMergeCombinesBothLegs(t *testing.T) {
	issuer := func(ctx context.Context, command string) ([]byte, error) { return []byte(command), nil }
	out, err := FetchMerge[int, string, string, string](
		context.Background(), issuer,
		pairFetcher{suffix: "-a"}, pairFetcher{suffix: "-b"},
		func(a, b string) string { return a + "/" + b },
		[]int{1, 2, 3}, 2,
	)
	require.NoError(t, err)
	require.Equal(t, "1-a/1-b", out[0].Out)
	require.Equal(t, "2-a/2-b", out[1].Out)
	require.Equal(t, "3-a/3-b", out[2].Out)
}

func TestTupledRunsConcurrentlyAndFailsFast(t *testing.T) {
	var ran [3]bool
	err := Tupled(
		func() error { ran[0] = true; return nil },
		func() error { ran[1] = true; return fmt.Errorf("leg2 failed") },
		func() error { ran[2] = true; return nil },
	)
	require.EqualError(t, err, "leg2 failed")
	require.True(t, ran[0])
	require.True(t, ran[1])
	require.True(t, ran[2])
}
