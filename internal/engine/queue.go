package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/strainix/timetrack/internal/localdb"
	"github.com/strainix/timetrack/internal/models"
)

// Queue is the durable log of mutations not yet confirmed by the remote
// store. Every change is written through to the local database so the queue
// survives restarts.
type Queue struct {
	mu  sync.Mutex
	db  *localdb.DB
	ops []models.Operation
}

func LoadQueue(db *localdb.DB) (*Queue, error) {
	ops, err := db.LoadOperations()
	if err != nil {
		return nil, err
	}
	return &Queue{db: db, ops: ops}, nil
}

// Enqueue assigns an id and timestamp, appends, and persists.
func (q *Queue) Enqueue(t models.OpType, sessionID string, data models.OpData) (models.Operation, error) {
	op := models.Operation{
		ID:        uuid.NewString(),
		Type:      t,
		SessionID: sessionID,
		Data:      data,
		Timestamp: models.NowMillis(),
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = append(q.ops, op)
	return op, q.db.PutOperation(op)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Snapshot returns a copy of the pending operations in enqueue order.
func (q *Queue) Snapshot() []models.Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.Operation, len(q.ops))
	copy(out, q.ops)
	return out
}

// Apply processes a batch of drain results: confirmed operations are
// removed, failed ones get their retry counter bumped, and operations at the
// retry limit are dropped for good. Returns the permanently dropped
// operations so the engine can surface them.
func (q *Queue) Apply(results []models.OperationResult) ([]models.Operation, error) {
	succeeded := make(map[string]bool, len(results))
	failed := make(map[string]bool, len(results))
	for _, r := range results {
		if r.Success {
			succeeded[r.OperationID] = true
		} else {
			failed[r.OperationID] = true
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	var (
		kept    []models.Operation
		dropped []models.Operation
	)
	for i, op := range q.ops {
		// On a persistence error, keep what was processed so far plus the
		// unprocessed remainder so the in-memory queue stays consistent with
		// the database instead of resurrecting already-confirmed operations.
		switch {
		case succeeded[op.ID]:
			if err := q.db.DeleteOperation(op.ID); err != nil {
				q.ops = append(kept, q.ops[i:]...)
				return dropped, err
			}
		case failed[op.ID]:
			op.Retries++
			if op.Retries >= models.MaxOperationRetries {
				if err := q.db.DeleteOperation(op.ID); err != nil {
					q.ops = append(kept, q.ops[i:]...)
					return dropped, err
				}
				dropped = append(dropped, op)
				continue
			}
			if err := q.db.PutOperation(op); err != nil {
				q.ops = append(kept, q.ops[i:]...)
				return dropped, err
			}
			kept = append(kept, op)
		default:
			// Not mentioned in the response; leave untouched for the next drain.
			kept = append(kept, op)
		}
	}
	q.ops = kept
	return dropped, nil
}
