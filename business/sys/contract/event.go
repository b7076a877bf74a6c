package contract

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
)

// Set of reasons an event log fails to decode.
var (
	ErrNoLogs       = errors.New("receipt has no logs")
	ErrNoTopics     = errors.New("log has no topics")
	ErrUnknownEvent = errors.New("log topic does not match a contract event")
	ErrPayload      = errors.New("event payload is not a single string")
)

// DecodeError reports that an event log could not be turned back into the
// emitted data. It is a data integrity failure, not a transaction failure.
type DecodeError struct {
	Err error
}

// Error implements the error interface.
func (de *DecodeError) Error() string {
	return "decoding event: " + de.Err.Error()
}

// Unwrap returns the underlying reason.
func (de *DecodeError) Unwrap() error {
	return de.Err
}

// IsDecodeError checks if an error of type DecodeError exists.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// DecodeFirstLog decodes the first log of the receipt.
func DecodeFirstLog(receipt *types.Receipt) (string, error) {
	if len(receipt.Logs) == 0 || receipt.Logs[0] == nil {
		return "", &DecodeError{ErrNoLogs}
	}

	return DecodeDataEvent(*receipt.Logs[0])
}

// DecodeDataEvent recovers the data argument of an event log using the
// contract interface.
func DecodeDataEvent(log types.Log) (string, error) {
	if len(log.Topics) == 0 {
		return "", &DecodeError{ErrNoTopics}
	}

	event, err := storageABI.EventByID(log.Topics[0])
	if err != nil {
		return "", &DecodeError{fmt.Errorf("%w: %s", ErrUnknownEvent, log.Topics[0].Hex())}
	}

	values, err := event.Inputs.Unpack(log.Data)
	if err != nil {
		return "", &DecodeError{fmt.Errorf("%s: %w", event.Name, err)}
	}

	if len(values) != 1 {
		return "", &DecodeError{ErrPayload}
	}

	data, ok := values[0].(string)
	if !ok {
		return "", &DecodeError{ErrPayload}
	}

	return data, nil
}
