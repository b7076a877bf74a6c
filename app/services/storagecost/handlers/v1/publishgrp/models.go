package publishgrp

import (
	"fmt"
	"time"

	"github.com/ardanlabs/storagecost/business/sys/validate"
)

// maxInputBytes caps the UTF-8 encoded size of the input.
const maxInputBytes = 128 * 1024

// Input is the text typed into the input panel.
type Input struct {
	Data string `json:"data"`
}

// Validate checks the data in the model is considered clean.
func (i Input) Validate() error {
	return checkSize(i.Data)
}

// Publish optionally carries the input to write. When Data is set it
// replaces the stored input before the write starts.
type Publish struct {
	Data *string `json:"data"`
}

// Validate checks the data in the model is considered clean.
func (p Publish) Validate() error {
	if p.Data == nil {
		return nil
	}
	return checkSize(*p.Data)
}

// checkSize limits the input by encoded bytes rather than characters.
func checkSize(data string) error {
	if len(data) > maxInputBytes {
		return validate.NewFieldsError("data", fmt.Errorf("data must be at most %d bytes, got %d", maxInputBytes, len(data)))
	}
	return nil
}

// InputResult reports the stored input and its encoded size.
type InputResult struct {
	Data  string `json:"data"`
	Bytes int    `json:"bytes"`
}

// Task reports a write that has been started.
type Task struct {
	TaskID   string    `json:"task_id"`
	Strategy string    `json:"strategy"`
	Status   string    `json:"status"`
	Data     string    `json:"data"`
	Started  time.Time `json:"started"`
}

// Read reports the value read back from a storage location.
type Read struct {
	Source string `json:"source"`
	Data   string `json:"data"`
}
