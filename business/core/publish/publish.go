// Package publish dispatches the three write strategies against the
// contract and handles their confirmations. Every write runs as a
// cancellable task whose outcome is posted to the display store.
package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/storagecost/business/core/display"
	"github.com/ardanlabs/storagecost/business/core/gasfee"
	"github.com/ardanlabs/storagecost/business/sys/contract"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Contract is the set of contract calls required to publish data.
type Contract interface {
	EmitDataAsEvent(ctx context.Context, data string) (*types.Transaction, error)
	StoreDataInSelf(ctx context.Context, data string) (*types.Transaction, error)
	StoreDataInChildContract(ctx context.Context, data string) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	RevertReason(ctx context.Context, tx *types.Transaction, receipt *types.Receipt) string
}

// Store is the display state the publisher reads the input from and posts
// its updates to.
type Store interface {
	Post(ctx context.Context, u display.Update) error
	Snapshot() display.State
}

// SettledFunc is called once a task reaches its outcome.
type SettledFunc func(strategy Strategy, outcome Outcome)

// Config represents the mandatory settings for a publisher.
type Config struct {
	Log       *zap.SugaredLogger
	Contract  Contract
	Store     Store
	Timeout   time.Duration
	OnSettled SettledFunc
	Tracer    trace.Tracer
}

// Publisher runs at most one write per strategy at a time.
type Publisher struct {
	log       *zap.SugaredLogger
	contract  Contract
	store     Store
	timeout   time.Duration
	onSettled SettledFunc
	tracer    trace.Tracer

	mu    sync.Mutex
	tasks map[Strategy]*Task
	shut  bool
	wg    sync.WaitGroup
}

// New constructs a publisher.
func New(cfg Config) *Publisher {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("storagecost/publish")
	}

	return &Publisher{
		log:       cfg.Log,
		contract:  cfg.Contract,
		store:     cfg.Store,
		timeout:   cfg.Timeout,
		onSettled: cfg.OnSettled,
		tracer:    tracer,
		tasks:     make(map[Strategy]*Task),
	}
}

// Submit starts a write of the current input with the specified strategy.
// The returned task settles asynchronously.
func (p *Publisher) Submit(ctx context.Context, strategy Strategy) (*Task, error) {
	data := p.store.Snapshot().Input
	if data == "" {
		return nil, ErrEmptyInput
	}

	p.mu.Lock()
	if p.shut {
		p.mu.Unlock()
		return nil, ErrShutdown
	}
	if _, exists := p.tasks[strategy]; exists {
		p.mu.Unlock()
		return nil, ErrPending
	}

	taskCtx, cancel := context.WithCancelCause(context.Background())
	stop := func() {}
	if p.timeout > 0 {
		taskCtx, stop = context.WithTimeoutCause(taskCtx, p.timeout, ErrTimeout)
	}

	task := Task{
		ID:       uuid.NewString(),
		Strategy: strategy,
		Data:     data,
		Started:  time.Now().UTC(),
		cancel:   cancel,
		stop:     stop,
		done:     make(chan struct{}),
	}
	p.tasks[strategy] = &task
	p.wg.Add(1)
	p.mu.Unlock()

	if err := p.store.Post(ctx, display.Update{Source: strategy.Source(), Kind: display.KindPending}); err != nil {
		p.mu.Lock()
		delete(p.tasks, strategy)
		p.mu.Unlock()

		stop()
		cancel(err)
		p.wg.Done()
		return nil, fmt.Errorf("posting pending state: %w", err)
	}

	p.log.Infow("publish", "status", "started", "task", task.ID, "strategy", strategy, "bytes", display.ByteSize(data))

	go func() {
		defer p.wg.Done()
		p.run(taskCtx, &task)
	}()

	return &task, nil
}

// Cancel stops waiting on the write in flight for the strategy. The
// transaction may still be mined.
func (p *Publisher) Cancel(strategy Strategy) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	task, exists := p.tasks[strategy]
	if !exists {
		return ErrNotPending
	}

	task.cancel(ErrCancelled)
	return nil
}

// Pending returns the strategies with a write in flight.
func (p *Publisher) Pending() []Strategy {
	p.mu.Lock()
	defer p.mu.Unlock()

	var pending []Strategy
	for _, s := range Strategies {
		if _, exists := p.tasks[s]; exists {
			pending = append(pending, s)
		}
	}
	return pending
}

// Shutdown cancels every write in flight and waits for the tasks to settle.
func (p *Publisher) Shutdown() {
	p.log.Infow("publish", "status", "shutdown started")
	defer p.log.Infow("publish", "status", "shutdown completed")

	p.mu.Lock()
	p.shut = true
	for _, task := range p.tasks {
		task.cancel(ErrShutdown)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// =============================================================================

// run executes the task and posts its outcome.
func (p *Publisher) run(ctx context.Context, task *Task) {
	ctx, span := p.tracer.Start(ctx, "publish.run")
	span.SetAttributes(
		attribute.String("strategy", string(task.Strategy)),
		attribute.String("task", task.ID),
	)
	defer span.End()

	outcome := p.execute(ctx, task)
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	}

	p.settle(task, outcome)
}

// execute submits the transaction, waits for its receipt and handles the
// confirmation.
func (p *Publisher) execute(ctx context.Context, task *Task) Outcome {
	tx, err := p.send(ctx, task.Strategy, task.Data)
	if err != nil {
		if out, done := interrupted(ctx, ""); done {
			return out
		}
		return Outcome{Status: StatusFailed, Err: &SubmitError{err}}
	}

	txHash := tx.Hash().Hex()
	p.log.Infow("publish", "status", "submitted", "task", task.ID, "strategy", task.Strategy, "tx", txHash)

	receipt, err := p.contract.WaitMined(ctx, tx)
	if err != nil {
		if out, done := interrupted(ctx, txHash); done {
			return out
		}
		return Outcome{Status: StatusFailed, TxHash: txHash, Err: &SubmitError{err}}
	}

	if receipt.Status == types.ReceiptStatusFailed {
		reason := p.contract.RevertReason(ctx, tx, receipt)
		return Outcome{Status: StatusFailed, TxHash: txHash, Err: &RevertError{TxHash: txHash, Reason: reason}}
	}

	gas, gasErr := gasfee.FromReceipt(receipt, tx)
	if gasErr != nil {
		p.log.Errorw("publish", "status", "gas metrics", "task", task.ID, "tx", txHash, "ERROR", gasErr)
		gasErr = &GasError{TxHash: txHash, Err: gasErr}
	}

	if task.Strategy != Event {
		return Outcome{Status: StatusConfirmed, TxHash: txHash, Gas: gas, GasErr: gasErr}
	}

	data, err := contract.DecodeFirstLog(receipt)
	if err != nil {
		return Outcome{Status: StatusDecodeFailed, TxHash: txHash, Gas: gas, Err: err, GasErr: gasErr}
	}

	return Outcome{Status: StatusConfirmed, TxHash: txHash, Gas: gas, Data: data, GasErr: gasErr}
}

// send calls the contract write for the strategy.
func (p *Publisher) send(ctx context.Context, strategy Strategy, data string) (*types.Transaction, error) {
	switch strategy {
	case Event:
		return p.contract.EmitDataAsEvent(ctx, data)
	case Self:
		return p.contract.StoreDataInSelf(ctx, data)
	case Child:
		return p.contract.StoreDataInChildContract(ctx, data)
	}
	return nil, fmt.Errorf("unknown strategy %q", strategy)
}

// settle publishes the outcome and then frees the strategy. The strategy
// stays taken until the store has the outcome queued, so a new write of the
// same strategy is always ordered after it.
func (p *Publisher) settle(task *Task, outcome Outcome) {
	task.outcome = outcome

	task.stop()
	task.cancel(nil)

	if err := p.store.Post(context.Background(), toUpdate(task.Strategy, outcome)); err != nil {
		p.log.Errorw("publish", "status", "post outcome", "task", task.ID, "ERROR", err)
	}

	p.mu.Lock()
	delete(p.tasks, task.Strategy)
	p.mu.Unlock()

	switch outcome.Err {
	case nil:
		p.log.Infow("publish", "status", outcome.Status, "task", task.ID, "strategy", task.Strategy, "tx", outcome.TxHash,
			"gas_used", outcome.Gas.GasUsed, "gas_price", outcome.Gas.GasPrice, "total_fee", outcome.Gas.TotalFee)
	default:
		p.log.Errorw("publish", "status", outcome.Status, "task", task.ID, "strategy", task.Strategy, "tx", outcome.TxHash, "ERROR", outcome.Err)
	}

	if p.onSettled != nil {
		p.onSettled(task.Strategy, outcome)
	}

	close(task.done)
}

// interrupted converts a done context into the outcome of the task.
func interrupted(ctx context.Context, txHash string) (Outcome, bool) {
	if ctx.Err() == nil {
		return Outcome{}, false
	}

	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, ErrTimeout):
		return Outcome{Status: StatusFailed, TxHash: txHash, Err: ErrTimeout}, true
	case errors.Is(cause, ErrShutdown):
		return Outcome{Status: StatusCancelled, TxHash: txHash, Err: ErrShutdown}, true
	default:
		return Outcome{Status: StatusCancelled, TxHash: txHash, Err: ErrCancelled}, true
	}
}

// toUpdate converts the outcome into the display update for the strategy.
func toUpdate(strategy Strategy, outcome Outcome) display.Update {
	u := display.Update{
		Source: strategy.Source(),
		Data:   outcome.Data,
		Gas:    outcome.Gas,
	}

	switch outcome.Status {
	case StatusConfirmed:
		u.Kind = display.KindConfirmed
	case StatusDecodeFailed:
		u.Kind = display.KindDecodeFailed
	case StatusCancelled:
		u.Kind = display.KindCancelled
	default:
		u.Kind = display.KindFailed
	}

	switch {
	case outcome.Err != nil:
		u.Err = display.Error{Kind: ErrorKind(outcome.Err), Message: outcome.Err.Error()}
	case outcome.GasErr != nil:
		u.Err = display.Error{Kind: display.ErrKindGas, Message: outcome.GasErr.Error()}
	}

	return u
}

// ErrorKind classifies a task error for display.
func ErrorKind(err error) string {
	var re *RevertError
	var ge *GasError

	switch {
	case errors.As(err, &re):
		return display.ErrKindRevert
	case errors.As(err, &ge):
		return display.ErrKindGas
	case contract.IsDecodeError(err):
		return display.ErrKindDecode
	case errors.Is(err, ErrTimeout):
		return display.ErrKindTimeout
	case errors.Is(err, ErrCancelled), errors.Is(err, ErrShutdown):
		return display.ErrKindCancelled
	default:
		return display.ErrKindSubmit
	}
}
