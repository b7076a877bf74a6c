package publish

import (
	"context"
	"time"

	"github.com/ardanlabs/storagecost/business/core/gasfee"
)

// Status is the state of a write task.
type Status string

// Set of task states.
const (
	StatusPending      Status = "pending"
	StatusConfirmed    Status = "confirmed"
	StatusDecodeFailed Status = "decode_failed"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
)

// Outcome is the result of a settled task.
type Outcome struct {
	Status Status
	TxHash string
	Data   string
	Gas    gasfee.Metrics
	Err    error

	// GasErr is set when the write landed but its gas metrics could not be
	// computed from the receipt.
	GasErr error
}

// Task is a write in flight.
type Task struct {
	ID       string
	Strategy Strategy
	Data     string
	Started  time.Time

	cancel  context.CancelCauseFunc
	stop    context.CancelFunc
	done    chan struct{}
	outcome Outcome
}

// Done returns a channel closed once the task settles.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Outcome returns the result of the task, or a pending outcome while the
// task is in flight.
func (t *Task) Outcome() Outcome {
	select {
	case <-t.done:
		return t.outcome
	default:
		return Outcome{Status: StatusPending}
	}
}

// Wait blocks until the task settles or the context is done.
func (t *Task) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.outcome, nil
	case <-ctx.Done():
		return Outcome{Status: StatusPending}, ctx.Err()
	}
}
