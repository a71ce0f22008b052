// Package dispatch fans a single call out across every provider in a
// round: concurrently in quiet mode, sequentially in verbose mode so
// streamed output is not interleaved. A failed provider is logged and
// omitted from the result; dispatch itself never fails a round for a
// partial failure — that policy belongs to the calling strategy.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/jpollock/mars/pkg/message"
	"github.com/jpollock/mars/pkg/providers"
	"github.com/jpollock/mars/pkg/retry"
	"golang.org/x/sync/errgroup"
)

// Call is the operation dispatched once per provider. It receives the
// provider to call against and returns the response or an error.
type Call func(ctx context.Context, p providers.Provider) (message.LLMResponse, error)

// Logger receives one notification per provider failure, already
// wrapped with the provider's name.
type Logger func(providerName string, err error)

// Options configures a single Dispatch call.
type Options struct {
	// Verbose forces sequential, registration-order execution.
	Verbose bool
	// Concurrency caps the number of in-flight calls in quiet mode.
	// Zero means unlimited.
	Concurrency int
	// MaxRetries is passed to retry.GenerateConfig (quiet mode) or
	// retry.StreamConfig (verbose mode) for each provider call.
	MaxRetries int
	// Log receives a notification for every provider that ultimately
	// failed. May be nil.
	Log Logger
}

// Dispatch runs call once against every provider in providerList and
// returns the responses keyed by provider name. Providers that fail
// after retry exhaustion are omitted from the result and reported to
// Log; Dispatch never returns an error itself.
func Dispatch(ctx context.Context, providerList []providers.Provider, call Call, opts Options) map[string]message.LLMResponse {
	if opts.Verbose {
		return dispatchSequential(ctx, providerList, call, opts)
	}
	return dispatchConcurrent(ctx, providerList, call, opts)
}

func dispatchConcurrent(ctx context.Context, providerList []providers.Provider, call Call, opts Options) map[string]message.LLMResponse {
	results := make(map[string]message.LLMResponse, len(providerList))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	cfg := retry.GenerateConfig(opts.MaxRetries)

	for _, p := range providerList {
		p := p
		g.Go(func() error {
			var resp message.LLMResponse
			err := retry.Do(gctx, cfg, func() error {
				var callErr error
				resp, callErr = call(gctx, p)
				return callErr
			})

			if gctx.Err() != nil {
				return gctx.Err()
			}

			if err != nil {
				if opts.Log != nil {
					opts.Log(p.Name(), fmt.Errorf("%s: %w", p.Name(), err))
				}
				return nil
			}

			mu.Lock()
			results[p.Name()] = resp
			mu.Unlock()
			return nil
		})
	}

	// A cancelled context aborts collection but the function still
	// returns whatever was gathered before cancellation; the caller
	// is responsible for treating ctx.Err() as fatal.
	_ = g.Wait()

	return results
}

func dispatchSequential(ctx context.Context, providerList []providers.Provider, call Call, opts Options) map[string]message.LLMResponse {
	results := make(map[string]message.LLMResponse, len(providerList))
	// Sequential dispatch is only ever used in verbose mode, where call
	// streams through streamToSink; StreamConfig's RetryableFunc honors
	// retry.NonRetryable once a chunk has already reached the renderer.
	cfg := retry.StreamConfig(opts.MaxRetries)

	for _, p := range providerList {
		if ctx.Err() != nil {
			return results
		}

		var resp message.LLMResponse
		err := retry.Do(ctx, cfg, func() error {
			var callErr error
			resp, callErr = call(ctx, p)
			return callErr
		})

		if err != nil {
			if opts.Log != nil {
				opts.Log(p.Name(), fmt.Errorf("%s: %w", p.Name(), err))
			}
			continue
		}

		results[p.Name()] = resp
	}

	return results
}
