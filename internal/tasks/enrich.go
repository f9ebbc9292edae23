package tasks

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"

	"github.com/desertthunder/enrichr/internal/models"
	"github.com/desertthunder/enrichr/internal/result"
	"github.com/desertthunder/enrichr/internal/services"
	"github.com/desertthunder/enrichr/internal/shared"
)

const (
	defaultPacing        = 500 * time.Millisecond
	defaultProgressEvery = 10
	defaultRetryDelay    = 5 * time.Second
)

// BatchFailure records a batch whose IDs were left unresolved.
type BatchFailure struct {
	Index int      // Zero-based batch index
	IDs   []string // IDs the batch carried
	Kind  result.Kind
	Err   error
}

// EnrichResult contains the accumulated lookup of an enrichment run.
type EnrichResult struct {
	Lookup   models.Lookup
	Batches  int            // Number of batches the ID list was split into
	Resolved int            // Entries in Lookup
	Failures []BatchFailure // Batches that contributed nothing, in order
}

// EnricherOpts configures an [Enricher].
type EnricherOpts struct {
	Fetcher       services.MetadataFetcher
	BatchSize     int           // 1..50, defaults to 50
	Pacing        time.Duration // pause between consecutive batches
	ProgressEvery int           // report on batch indices 0, n, 2n...
	RetryAttempts uint64        // extra attempts for transient batches, 0 disables
	RetryDelay    time.Duration // constant delay between those attempts
	Logger        *log.Logger
	Sleep         shared.SleepFunc
}

// Enricher resolves an ordered ID list into a [models.Lookup] one batch at a time.
type Enricher struct {
	fetcher       services.MetadataFetcher
	batchSize     int
	pacing        time.Duration
	progressEvery int
	retryAttempts uint64
	retryDelay    time.Duration
	logger        *log.Logger
	sleep         shared.SleepFunc
}

// NewEnricher validates opts and fills in defaults.
func NewEnricher(opts EnricherOpts) (*Enricher, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("%w: metadata fetcher not initialized", shared.ErrServiceUnavailable)
	}

	switch {
	case opts.BatchSize == 0:
		opts.BatchSize = shared.MaxBatchSize
	case opts.BatchSize < 0 || opts.BatchSize > shared.MaxBatchSize:
		return nil, fmt.Errorf("%w: batch size must be between 1 and %d, got %d", shared.ErrInvalidConfig, shared.MaxBatchSize, opts.BatchSize)
	}

	if opts.Pacing < 0 {
		opts.Pacing = defaultPacing
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = defaultProgressEvery
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Sleep == nil {
		opts.Sleep = shared.Sleep
	}

	return &Enricher{
		fetcher:       opts.Fetcher,
		batchSize:     opts.BatchSize,
		pacing:        opts.Pacing,
		progressEvery: opts.ProgressEvery,
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
		logger:        opts.Logger,
		sleep:         opts.Sleep,
	}, nil
}

// NewEnricherFromConfig builds an [Enricher] from the [enrich] config section.
func NewEnricherFromConfig(fetcher services.MetadataFetcher, c shared.EnrichConfig, logger *log.Logger, sleep shared.SleepFunc) (*Enricher, error) {
	return NewEnricher(EnricherOpts{
		Fetcher:       fetcher,
		BatchSize:     c.BatchSize,
		Pacing:        c.Pacing.Duration,
		ProgressEvery: c.ProgressEvery,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay.Duration,
		Logger:        logger,
		Sleep:         sleep,
	})
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Enricher) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Enrich fetches metadata for ids in consecutive batches, strictly one at a time.
//
// Batches are merged first-write-wins. A failed batch is recorded and skipped; the run continues.
// The only early exit is context cancellation, which returns the partial result along with ctx.Err().
func (e *Enricher) Enrich(ctx context.Context, progress chan<- ProgressUpdate, ids []string, token string) (*EnrichResult, error) {
	batches := lo.Chunk(ids, e.batchSize)
	res := &EnrichResult{Lookup: models.Lookup{}, Batches: len(batches)}

	e.logger.Info("starting enrichment", "tracks", len(ids), "batches", len(batches), "batch_size", e.batchSize)
	e.sendProgress(progress, startBatchesUpdate(len(batches), len(ids)))

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if i > 0 && e.pacing > 0 {
			if err := e.sleep(ctx, e.pacing); err != nil {
				return res, err
			}
		}

		out := e.fetch(ctx, batch, token)
		res.Resolved += res.Lookup.Merge(out.ValueOr(nil))

		if !out.OK() {
			failure := BatchFailure{Index: i, IDs: batch, Kind: out.Kind(), Err: out.Err()}
			res.Failures = append(res.Failures, failure)
			e.logger.Warn("batch skipped", "batch", i, "ids", len(batch), "kind", out.Kind(), "error", out.Err())
			e.sendProgress(progress, batchFailedUpdate(i+1, len(batches), failure))
		}

		if i%e.progressEvery == 0 {
			e.logger.Info("batch processed", "batch", i, "of", len(batches), "resolved", res.Resolved)
			e.sendProgress(progress, batchUpdate(i+1, len(batches), res.Resolved))
		}
	}

	e.logger.Info("enrichment finished", "resolved", res.Resolved, "failed_batches", len(res.Failures))
	e.sendProgress(progress, mergedUpdate(res))
	return res, nil
}

func (e *Enricher) fetch(ctx context.Context, batch []string, token string) result.Of[models.Lookup] {
	return withRetry(ctx, e.retryAttempts, e.retryDelay, func(ctx context.Context) result.Of[models.Lookup] {
		return e.fetcher.FetchBatch(ctx, batch, token)
	})
}

// AcquireToken performs the credential exchange, retrying transient failures when the enricher allows retries.
func (e *Enricher) AcquireToken(ctx context.Context, progress chan<- ProgressUpdate, src services.TokenSource) (string, error) {
	attempt := 0
	out := withRetry(ctx, e.retryAttempts, e.retryDelay, func(ctx context.Context) result.Of[string] {
		attempt++
		e.sendProgress(progress, fetchTokenUpdate(attempt))
		return src.Token(ctx)
	})

	if !out.OK() {
		e.logger.Error("could not obtain access token", "attempts", attempt, "kind", out.Kind(), "error", out.Err())
		return "", out.Err()
	}
	return out.Value(), nil
}

// withRetry runs fn, then up to attempts more times while it reports a transient failure.
//
// Fatal outcomes end the loop immediately. The last outcome is returned.
func withRetry[T any](ctx context.Context, attempts uint64, delay time.Duration, fn func(context.Context) result.Of[T]) result.Of[T] {
	if attempts == 0 {
		return fn(ctx)
	}

	var zero T
	out := result.Retryable(zero, context.Canceled)

	backoff := retry.WithMaxRetries(attempts, retry.NewConstant(delay))
	_ = retry.Do(ctx, backoff, func(ctx context.Context) error {
		out = fn(ctx)
		if out.IsTransient() {
			return retry.RetryableError(out.Err())
		}
		return nil
	})
	return out
}
