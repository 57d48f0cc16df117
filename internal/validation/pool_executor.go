package validation

import (
	"context"
	"sync"

	"github.com/angstrom-protocol/angstrom/internal/obs"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"golang.org/x/sync/semaphore"
)

// PerUserConcurrency bounds how many validation tasks may run concurrently
// for a single signer address, so nonce-dependent park/unpark decisions see
// a consistent per-user view even though the pool as a whole runs many
// signers in parallel.
const PerUserConcurrency = 2

// Result is delivered to Pool.Submit's callback once a validation task
// completes or is cancelled by a block transition.
type Result struct {
	Order *types.OrderWithStorageData[types.AllOrders]
	Err   *Error
}

// Pool is the key-partitioned validation executor: tasks are partitioned by
// signer address (at most PerUserConcurrency concurrent per signer) and
// tagged with the block they were submitted for, so OnNewBlock can cancel
// every task still running against a now-stale block.
type Pool struct {
	v   *Validator
	log obs.Logger

	mu          sync.Mutex
	sems        map[types.Address]*semaphore.Weighted
	blockNumber uint64
	blockCtx    context.Context
	blockCancel context.CancelFunc

	wg sync.WaitGroup
}

// NewPool constructs a validation pool over v, initially accepting work for
// blockNumber 0 (callers should call OnNewBlock once before submitting real
// traffic).
func NewPool(v *Validator, log obs.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		v:           v,
		log:         log.With("component", "validation-pool"),
		sems:        make(map[types.Address]*semaphore.Weighted),
		blockCtx:    ctx,
		blockCancel: cancel,
	}
}

// OnNewBlock cancels every in-flight task still tagged with a prior block
// and opens a fresh cancellation scope for blockNumber.
func (p *Pool) OnNewBlock(blockNumber uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if blockNumber <= p.blockNumber && p.blockNumber != 0 {
		return
	}
	p.blockCancel()
	ctx, cancel := context.WithCancel(context.Background())
	p.blockNumber = blockNumber
	p.blockCtx = ctx
	p.blockCancel = cancel
}

func (p *Pool) semaphoreFor(signer types.Address) *semaphore.Weighted {
	p.mu.Lock()
	defer p.mu.Unlock()
	sem, ok := p.sems[signer]
	if !ok {
		sem = semaphore.NewWeighted(PerUserConcurrency)
		p.sems[signer] = sem
	}
	return sem
}

func (p *Pool) currentBlock() (context.Context, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.blockCtx, p.blockNumber
}

// Submit validates o asynchronously and invokes done with the outcome. done
// is never called if the task's block is cancelled first; callers
// that need to know about drops should watch OnNewBlock themselves.
func (p *Pool) Submit(o types.AllOrders, done func(Result)) {
	signer := o.Signer()
	sem := p.semaphoreFor(signer)
	taskCtx, blockNumber := p.currentBlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := sem.Acquire(taskCtx, 1); err != nil {
			return // cancelled (block transition) while waiting for a slot
		}
		defer sem.Release(1)

		if taskCtx.Err() != nil {
			return
		}
		order, verr := p.v.Validate(taskCtx, o, blockNumber)
		if taskCtx.Err() != nil {
			return // superseded by a block transition mid-flight
		}
		done(Result{Order: order, Err: verr})
	}()
}

// Wait blocks until every submitted task has returned or been cancelled.
// Used by tests and by graceful shutdown.
func (p *Pool) Wait() { p.wg.Wait() }
