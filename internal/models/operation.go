package models

import "fmt"

// OpType enumerates the four mutations a client can queue while the remote
// store is unreachable.
type OpType string

const (
	OpStartSession  OpType = "start_session"
	OpEndSession    OpType = "end_session"
	OpUpdateSession OpType = "update_session"
	OpDeleteSession OpType = "delete_session"
)

// MaxOperationRetries bounds how often a queued operation is retried before
// it is dropped for good.
const MaxOperationRetries = 5

// OpData is the payload of a queued operation. Which fields are meaningful
// depends on the operation type: start carries StartTime, end carries
// EndTime, update carries either or both, delete carries none.
type OpData struct {
	StartTime *int64 `json:"startTime,omitempty"`
	EndTime   *int64 `json:"endTime,omitempty"`
}

// Operation is a pending mutation awaiting confirmation by the remote store.
// Operations are applied independently and idempotently server-side, so the
// batch endpoint is free to reorder them.
type Operation struct {
	ID        string `json:"id"`
	Type      OpType `json:"type"`
	SessionID string `json:"sessionId"`
	Data      OpData `json:"data"`
	Timestamp int64  `json:"timestamp"`
	Retries   int    `json:"retries"`
}

// Validate checks that the payload matches the operation type.
func (o Operation) Validate() error {
	switch o.Type {
	case OpStartSession:
		if o.Data.StartTime == nil {
			return fmt.Errorf("start_session operation %s missing startTime", o.ID)
		}
	case OpEndSession:
		if o.Data.EndTime == nil {
			return fmt.Errorf("end_session operation %s missing endTime", o.ID)
		}
	case OpUpdateSession:
		if o.Data.StartTime == nil && o.Data.EndTime == nil {
			return fmt.Errorf("update_session operation %s has empty payload", o.ID)
		}
	case OpDeleteSession:
	default:
		return fmt.Errorf("unknown operation type %q", o.Type)
	}
	if o.SessionID == "" {
		return fmt.Errorf("operation %s missing sessionId", o.ID)
	}
	return nil
}

// OperationResult is the per-operation outcome of a batch sync call.
type OperationResult struct {
	OperationID string `json:"operationId"`
	Success     bool   `json:"success"`
	Data        any    `json:"data,omitempty"`
	Error       string `json:"error,omitempty"`
}
