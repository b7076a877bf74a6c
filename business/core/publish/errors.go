package publish

import (
	"errors"
	"fmt"
)

// Set of error variables for dispatching writes.
var (
	ErrEmptyInput = errors.New("input is empty")
	ErrPending    = errors.New("write already pending for this strategy")
	ErrNotPending = errors.New("no write pending for this strategy")
	ErrCancelled  = errors.New("write cancelled")
	ErrTimeout    = errors.New("write timed out")
	ErrShutdown   = errors.New("publisher shut down")
)

// SubmitError reports that the transaction never made it on chain: the key
// could not sign, the node rejected it or the connection failed.
type SubmitError struct {
	Err error
}

// Error implements the error interface.
func (se *SubmitError) Error() string {
	return "submitting transaction: " + se.Err.Error()
}

// Unwrap returns the underlying error.
func (se *SubmitError) Unwrap() error {
	return se.Err
}

// RevertError reports that the transaction was mined but reverted.
type RevertError struct {
	TxHash string
	Reason string
}

// Error implements the error interface.
func (re *RevertError) Error() string {
	if re.Reason == "" {
		return fmt.Sprintf("transaction %s reverted", re.TxHash)
	}
	return fmt.Sprintf("transaction %s reverted: %s", re.TxHash, re.Reason)
}

// GasError reports that a mined transaction's receipt did not yield gas
// metrics.
type GasError struct {
	TxHash string
	Err    error
}

// Error implements the error interface.
func (ge *GasError) Error() string {
	return fmt.Sprintf("gas metrics for transaction %s: %s", ge.TxHash, ge.Err)
}

// Unwrap returns the underlying error.
func (ge *GasError) Unwrap() error {
	return ge.Err
}
