package tasks_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/enrichr/internal/models"
	"github.com/desertthunder/enrichr/internal/result"
	"github.com/desertthunder/enrichr/internal/shared"
	"github.com/desertthunder/enrichr/internal/tasks"
	tu "github.com/desertthunder/enrichr/internal/testing"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("id%03d", i)
	}
	return ids
}

func resolveAll(year string) func(int, []string) result.Of[models.Lookup] {
	return func(_ int, ids []string) result.Of[models.Lookup] {
		lookup := models.Lookup{}
		for _, id := range ids {
			lookup[id] = models.Metadata{Year: year, CountryCode: "US", Region: "North America"}
		}
		return result.Ok(lookup)
	}
}

func newEnricher(t *testing.T, opts tasks.EnricherOpts) *tasks.Enricher {
	t.Helper()
	if opts.Sleep == nil {
		opts.Sleep = (&tu.SleepRecorder{}).Sleep
	}
	e, err := tasks.NewEnricher(opts)
	require.NoError(t, err)
	return e
}

func TestNewEnricher(t *testing.T) {
	t.Parallel()

	t.Run("nil fetcher", func(t *testing.T) {
		t.Parallel()
		_, err := tasks.NewEnricher(tasks.EnricherOpts{})
		require.ErrorIs(t, err, shared.ErrServiceUnavailable)
	})

	t.Run("oversized batch", func(t *testing.T) {
		t.Parallel()
		_, err := tasks.NewEnricher(tasks.EnricherOpts{Fetcher: &tu.FakeCatalog{}, BatchSize: 51})
		require.ErrorIs(t, err, shared.ErrInvalidConfig)
	})

	t.Run("from config", func(t *testing.T) {
		t.Parallel()
		sleeper := &tu.SleepRecorder{}
		e, err := tasks.NewEnricherFromConfig(&tu.FakeCatalog{}, shared.DefaultConfig().Enrich, nil, sleeper.Sleep)
		require.NoError(t, err)

		res, err := e.Enrich(context.Background(), nil, makeIDs(60), tu.TestToken)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Batches)
		assert.Equal(t, []time.Duration{500 * time.Millisecond}, sleeper.Durations())
	})
}

func TestEnrich(t *testing.T) {
	t.Parallel()

	t.Run("splits ids into ordered batches", func(t *testing.T) {
		t.Parallel()

		fake := &tu.FakeCatalog{Batch: resolveAll("2020")}
		e := newEnricher(t, tasks.EnricherOpts{Fetcher: fake})
		ids := makeIDs(120)

		res, err := e.Enrich(context.Background(), nil, ids, tu.TestToken)
		require.NoError(t, err)

		calls := fake.Calls()
		require.Len(t, calls, 3)
		assert.Equal(t, 3, res.Batches)
		assert.Len(t, calls[0], 50)
		assert.Len(t, calls[1], 50)
		assert.Len(t, calls[2], 20)

		var joined []string
		for _, c := range calls {
			joined = append(joined, c...)
		}
		assert.Equal(t, ids, joined)
		assert.Equal(t, 120, res.Resolved)
		assert.Len(t, res.Lookup, 120)
		assert.Empty(t, res.Failures)
	})

	t.Run("batch size boundaries", func(t *testing.T) {
		t.Parallel()

		for _, n := range []int{0, 1, 49, 50, 51, 100, 101} {
			fake := &tu.FakeCatalog{}
			e := newEnricher(t, tasks.EnricherOpts{Fetcher: fake})

			res, err := e.Enrich(context.Background(), nil, makeIDs(n), tu.TestToken)
			require.NoError(t, err)

			want := (n + 49) / 50
			assert.Equal(t, want, res.Batches, "n=%d", n)
			assert.Len(t, fake.Calls(), want, "n=%d", n)
		}
	})

	t.Run("first write wins", func(t *testing.T) {
		t.Parallel()

		fake := &tu.FakeCatalog{Batch: func(call int, ids []string) result.Of[models.Lookup] {
			return result.Ok(models.Lookup{"dup": {Year: fmt.Sprint(2000 + call)}})
		}}
		e := newEnricher(t, tasks.EnricherOpts{Fetcher: fake, BatchSize: 1})

		res, err := e.Enrich(context.Background(), nil, []string{"dup", "dup", "dup"}, tu.TestToken)
		require.NoError(t, err)

		assert.Equal(t, "2000", res.Lookup["dup"].Year)
		assert.Equal(t, 1, res.Resolved)
	})

	t.Run("rate limited batch is not retried by default", func(t *testing.T) {
		t.Parallel()

		fake := &tu.FakeCatalog{Batch: func(call int, ids []string) result.Of[models.Lookup] {
			if call == 1 {
				return result.Retryable(models.Lookup{}, shared.ErrRateLimited)
			}
			return resolveAll("2021")(call, ids)
		}}
		e := newEnricher(t, tasks.EnricherOpts{Fetcher: fake, BatchSize: 2})
		ids := makeIDs(6)

		res, err := e.Enrich(context.Background(), nil, ids, tu.TestToken)
		require.NoError(t, err)

		assert.Len(t, fake.Calls(), 3)
		assert.Len(t, res.Lookup, 4)
		assert.NotContains(t, res.Lookup, ids[2])
		assert.NotContains(t, res.Lookup, ids[3])

		require.Len(t, res.Failures, 1)
		assert.Equal(t, 1, res.Failures[0].Index)
		assert.Equal(t, result.Transient, res.Failures[0].Kind)
		assert.ErrorIs(t, res.Failures[0].Err, shared.ErrRateLimited)
		assert.Equal(t, ids[2:4], res.Failures[0].IDs)
	})

	t.Run("transient batch is retried when enabled", func(t *testing.T) {
		t.Parallel()

		fake := &tu.FakeCatalog{Batch: func(call int, ids []string) result.Of[models.Lookup] {
			if call == 0 {
				return result.Retryable(models.Lookup{}, shared.ErrRateLimited)
			}
			return resolveAll("2022")(call, ids)
		}}
		e := newEnricher(t, tasks.EnricherOpts{Fetcher: fake, RetryAttempts: 2, RetryDelay: time.Millisecond})

		res, err := e.Enrich(context.Background(), nil, makeIDs(3), tu.TestToken)
		require.NoError(t, err)

		assert.Len(t, fake.Calls(), 2)
		assert.Len(t, res.Lookup, 3)
		assert.Empty(t, res.Failures)
	})

	t.Run("retries stop after the configured attempts", func(t *testing.T) {
		t.Parallel()

		fake := &tu.FakeCatalog{Batch: func(int, []string) result.Of[models.Lookup] {
			return result.Retryable(models.Lookup{}, shared.ErrAPIRequest)
		}}
		e := newEnricher(t, tasks.EnricherOpts{Fetcher: fake, RetryAttempts: 2, RetryDelay: time.Millisecond})

		res, err := e.Enrich(context.Background(), nil, makeIDs(3), tu.TestToken)
		require.NoError(t, err)

		assert.Len(t, fake.Calls(), 3)
		require.Len(t, res.Failures, 1)
		assert.Equal(t, result.Transient, res.Failures[0].Kind)
	})

	t.Run("fatal batch is never retried", func(t *testing.T) {
		t.Parallel()

		fake := &tu.FakeCatalog{Batch: func(int, []string) result.Of[models.Lookup] {
			return result.Failed(models.Lookup{}, shared.ErrTokenExpired)
		}}
		e := newEnricher(t, tasks.EnricherOpts{Fetcher: fake, BatchSize: 5, RetryAttempts: 3, RetryDelay: time.Millisecond})

		res, err := e.Enrich(context.Background(), nil, makeIDs(10), tu.TestToken)
		require.NoError(t, err)

		assert.Len(t, fake.Calls(), 2)
		assert.Empty(t, res.Lookup)
		require.Len(t, res.Failures, 2)
		assert.Equal(t, result.Fatal, res.Failures[1].Kind)
	})

	t.Run("paces between batches", func(t *testing.T) {
		t.Parallel()

		sleeper := &tu.SleepRecorder{}
		e := newEnricher(t, tasks.EnricherOpts{
			Fetcher:   &tu.FakeCatalog{},
			BatchSize: 10,
			Pacing:    500 * time.Millisecond,
			Sleep:     sleeper.Sleep,
		})

		_, err := e.Enrich(context.Background(), nil, makeIDs(30), tu.TestToken)
		require.NoError(t, err)

		assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, sleeper.Durations())
	})

	t.Run("paces after failed batches", func(t *testing.T) {
		t.Parallel()

		sleeper := &tu.SleepRecorder{}
		catalog := &tu.FakeCatalog{Batch: func(call int, ids []string) result.Of[models.Lookup] {
			switch call {
			case 0:
				return result.Retryable(models.Lookup{}, shared.ErrRateLimited)
			case 1:
				return result.Failed(models.Lookup{}, shared.ErrAPIRequest)
			default:
				return resolveAll("2020")(call, ids)
			}
		}}
		e := newEnricher(t, tasks.EnricherOpts{
			Fetcher:   catalog,
			BatchSize: 10,
			Pacing:    500 * time.Millisecond,
			Sleep:     sleeper.Sleep,
		})

		res, err := e.Enrich(context.Background(), nil, makeIDs(30), tu.TestToken)
		require.NoError(t, err)

		assert.Len(t, res.Failures, 2)
		assert.Equal(t, 10, res.Resolved)
		assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, sleeper.Durations())
	})

	t.Run("reports progress every n batches", func(t *testing.T) {
		t.Parallel()

		progress := make(chan tasks.ProgressUpdate, 100)
		e := newEnricher(t, tasks.EnricherOpts{Fetcher: &tu.FakeCatalog{}, BatchSize: 1, ProgressEvery: 10})

		_, err := e.Enrich(context.Background(), progress, makeIDs(25), tu.TestToken)
		require.NoError(t, err)
		close(progress)

		var steps []int
		var phases []tasks.Phase
		for u := range progress {
			phases = append(phases, u.Phase)
			if u.Phase == tasks.FetchBatches && u.Step > 0 {
				steps = append(steps, u.Step)
			}
		}

		assert.Equal(t, []int{1, 11, 21}, steps)
		assert.Equal(t, tasks.FetchBatches, phases[0])
		assert.Equal(t, tasks.MergeResults, phases[len(phases)-1])
	})

	t.Run("full progress channel does not block", func(t *testing.T) {
		t.Parallel()

		progress := make(chan tasks.ProgressUpdate)
		e := newEnricher(t, tasks.EnricherOpts{Fetcher: &tu.FakeCatalog{}, BatchSize: 1, ProgressEvery: 1})

		res, err := e.Enrich(context.Background(), progress, makeIDs(5), tu.TestToken)
		require.NoError(t, err)
		assert.Equal(t, 5, res.Batches)
	})

	t.Run("cancellation returns the partial result", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		fake := &tu.FakeCatalog{Batch: func(call int, ids []string) result.Of[models.Lookup] {
			cancel()
			return resolveAll("2019")(call, ids)
		}}
		e := newEnricher(t, tasks.EnricherOpts{Fetcher: fake, BatchSize: 2, Pacing: time.Second})

		res, err := e.Enrich(ctx, nil, makeIDs(6), tu.TestToken)
		require.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, res)

		assert.Len(t, fake.Calls(), 1)
		assert.Len(t, res.Lookup, 2)
	})
}

func TestAcquireToken(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		fake := &tu.FakeCatalog{TokenResult: result.Ok(tu.TestToken)}
		e := newEnricher(t, tasks.EnricherOpts{Fetcher: fake})

		progress := make(chan tasks.ProgressUpdate, 4)
		token, err := e.AcquireToken(context.Background(), progress, fake)
		require.NoError(t, err)
		assert.Equal(t, tu.TestToken, token)

		u := <-progress
		assert.Equal(t, tasks.FetchToken, u.Phase)
	})

	t.Run("failure", func(t *testing.T) {
		t.Parallel()

		fake := &tu.FakeCatalog{TokenResult: result.Failed("", shared.ErrAuthFailed)}
		e := newEnricher(t, tasks.EnricherOpts{Fetcher: fake, RetryAttempts: 3, RetryDelay: time.Millisecond})

		token, err := e.AcquireToken(context.Background(), nil, fake)
		require.ErrorIs(t, err, shared.ErrAuthFailed)
		assert.Empty(t, token)
	})

	t.Run("transient failure is retried when enabled", func(t *testing.T) {
		t.Parallel()

		src := &flakyToken{failures: 2}
		e := newEnricher(t, tasks.EnricherOpts{Fetcher: &tu.FakeCatalog{}, RetryAttempts: 2, RetryDelay: time.Millisecond})

		token, err := e.AcquireToken(context.Background(), nil, src)
		require.NoError(t, err)
		assert.Equal(t, tu.TestToken, token)
		assert.Equal(t, 3, src.calls)
	})

	t.Run("transient failure is final without retries", func(t *testing.T) {
		t.Parallel()

		src := &flakyToken{failures: 1}
		e := newEnricher(t, tasks.EnricherOpts{Fetcher: &tu.FakeCatalog{}})

		_, err := e.AcquireToken(context.Background(), nil, src)
		require.ErrorIs(t, err, shared.ErrAuthFailed)
		assert.Equal(t, 1, src.calls)
	})
}

type flakyToken struct {
	failures int
	calls    int
}

func (f *flakyToken) Token(ctx context.Context) result.Of[string] {
	f.calls++
	if f.calls <= f.failures {
		return result.Retryable("", shared.ErrAuthFailed)
	}
	return result.Ok(tu.TestToken)
}
