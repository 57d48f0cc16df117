package submission

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/angstrom-protocol/angstrom/internal/obs"
	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// maxInFlight bounds how many sinks are attempted concurrently.
const maxInFlight = 10

// ErrAllSinksFailed is returned when every configured sink rejected the
// submission.
var ErrAllSinksFailed = errors.New("submission: all sinks failed")

type sinkResult struct {
	sink string
	hash types.Hash
	err  error
}

// Fanout concurrently attempts submission across every configured sink and
// returns the first accepted transaction hash; remaining in-flight attempts
// are cancelled once a winner is found.
type Fanout struct {
	sinks []Sink
	log   obs.Logger
}

func NewFanout(sinks []Sink, log obs.Logger) *Fanout {
	return &Fanout{sinks: sinks, log: log.With("component", "submission-fanout")}
}

// Submit races tx across every sink and returns the first accepted hash.
// A transient per-sink failure is logged and does not stop the race; if
// every sink fails, the returned error wraps ErrAllSinksFailed and carries
// the last observed error's message.
func (f *Fanout) Submit(ctx context.Context, tx *Transaction) (types.Hash, string, error) {
	if len(f.sinks) == 0 {
		return types.Hash{}, "", ErrAllSinksFailed
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan sinkResult, len(f.sinks))
	g, gctx := errgroup.WithContext(raceCtx)
	g.SetLimit(maxInFlight)

	for _, sink := range f.sinks {
		sink := sink
		g.Go(func() error {
			hash, err := sink.Submit(gctx, tx)
			results <- sinkResult{sink: sink.Name(), hash: hash, err: err}
			return nil // per-sink failure never aborts the race for the others
		})
	}
	go func() {
		g.Wait()
		close(results)
	}()

	var lastErr error
	for r := range results {
		if r.err != nil {
			lastErr = r.err
			f.log.Warn("submission sink failed", "sink", r.sink, "err", r.err)
			continue
		}
		cancel() // drop every other in-flight attempt; this one won the race
		f.log.Info("submission accepted", "sink", r.sink, "tx_hash", r.hash.String())
		return r.hash, r.sink, nil
	}

	if lastErr == nil {
		lastErr = ErrAllSinksFailed
	}
	return types.Hash{}, "", fmt.Errorf("%w: %v", ErrAllSinksFailed, lastErr)
}
