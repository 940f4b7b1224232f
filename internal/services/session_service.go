package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/strainix/timetrack/internal/models"
	"github.com/strainix/timetrack/internal/repos"
)

// ErrCodeSpaceExhausted is returned when user-code generation keeps
// colliding; callers should surface it as retryable.
var ErrCodeSpaceExhausted = errors.New("unable to generate unique user code")

const codeGenAttempts = 100

// SessionService implements the authoritative session semantics: one open
// session per user code, idempotent conditional updates, soft deletes.
type SessionService struct {
	repo    *repos.SessionRepo
	now     func() int64
	newCode func() string
}

func NewSessionService(repo *repos.SessionRepo) *SessionService {
	return &SessionService{repo: repo, now: models.NowMillis, newCode: newPassphrase}
}

// SetClock overrides the service clock, for tests.
func (s *SessionService) SetClock(now func() int64) {
	s.now = now
}

// SetCodeGenerator overrides the passphrase source, for tests.
func (s *SessionService) SetCodeGenerator(fn func() string) {
	s.newCode = fn
}

type CreateSessionInput struct {
	// SessionID is set when a queued start operation replays with the id the
	// device assigned offline; empty means the server mints one.
	SessionID string
	DeviceID  string
	StartTime *int64
}

type CreateSessionOutput struct {
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
}

// CreateSession inserts a new session and enforces the single-open-session
// invariant. When several open sessions exist (two devices both started one
// offline), the one with the greatest start time survives and the rest are
// closed at the survivor's start, so the outcome does not depend on which
// device synced first.
func (s *SessionService) CreateSession(userCode string, in CreateSessionInput) (*CreateSessionOutput, error) {
	now := s.now()
	id := in.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	start := now
	if in.StartTime != nil {
		start = *in.StartTime
	}

	err := s.repo.WithTx(func(tx *sql.Tx) error {
		_, err := s.repo.InsertSessionIfAbsentTx(tx, userCode, &models.Session{
			ID:        id,
			DeviceID:  in.DeviceID,
			StartTime: start,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
		survivor, err := s.repo.LatestOpenTx(tx, userCode)
		if err != nil {
			if errors.Is(err, repos.ErrNotFound) {
				return nil
			}
			return err
		}
		_, err = s.repo.CloseOpenExceptTx(tx, userCode, survivor.ID, survivor.StartTime, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &CreateSessionOutput{SessionID: id, Timestamp: now}, nil
}

type UpdateSessionOutput struct {
	Updated   bool  `json:"updated"`
	Timestamp int64 `json:"timestamp"`
}

// UpdateSession applies a partial start/end time update. Missing and
// tombstoned sessions report repos.ErrNotFound. The update is a plain
// conditional write, so replaying it with the same values is harmless.
func (s *SessionService) UpdateSession(userCode, id string, start, end *int64) (*UpdateSessionOutput, error) {
	now := s.now()
	ok, err := s.repo.UpdateSessionFields(userCode, id, start, end, now)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if !ok {
		return nil, repos.ErrNotFound
	}
	return &UpdateSessionOutput{Updated: true, Timestamp: now}, nil
}

type DeleteSessionOutput struct {
	Deleted   bool  `json:"deleted"`
	Timestamp int64 `json:"timestamp"`
}

// DeleteSession tombstones a session; already-deleted ids report
// repos.ErrNotFound.
func (s *SessionService) DeleteSession(userCode, id string) (*DeleteSessionOutput, error) {
	now := s.now()
	ok, err := s.repo.SoftDeleteSession(userCode, id, now)
	if err != nil {
		return nil, fmt.Errorf("delete session: %w", err)
	}
	if !ok {
		return nil, repos.ErrNotFound
	}
	return &DeleteSessionOutput{Deleted: true, Timestamp: now}, nil
}

type ListSessionsOutput struct {
	Sessions  []models.Session `json:"sessions"`
	Timestamp int64            `json:"timestamp"`
}

// ListSessions returns the user's sessions plus the server clock, which the
// client stores as its next incremental-sync watermark.
func (s *SessionService) ListSessions(userCode string, since int64) (*ListSessionsOutput, error) {
	now := s.now()
	if err := s.repo.TouchUserCode(userCode, now); err != nil {
		return nil, fmt.Errorf("touch user code: %w", err)
	}
	sessions, err := s.repo.ListSessions(userCode, since)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return &ListSessionsOutput{Sessions: sessions, Timestamp: now}, nil
}

// GenerateUserCode mints a new collision-checked account code. The code is a
// memorable adjective-noun-digit passphrase, not a security boundary.
func (s *SessionService) GenerateUserCode() (string, error) {
	for i := 0; i < codeGenAttempts; i++ {
		code := s.newCode()
		exists, err := s.repo.UserCodeExists(code)
		if err != nil {
			return "", fmt.Errorf("check user code: %w", err)
		}
		if exists {
			continue
		}
		if err := s.repo.InsertUserCode(code, s.now()); err != nil {
			return "", fmt.Errorf("insert user code: %w", err)
		}
		return code, nil
	}
	return "", ErrCodeSpaceExhausted
}

type ProcessOperationsOutput struct {
	Results   []models.OperationResult `json:"results"`
	Timestamp int64                    `json:"timestamp"`
}

// ProcessOperations batch-applies queued operations from an offline device.
// Each operation is handled independently; one failure never aborts the
// batch. Queue order is not assumed: every operation maps to a conditional
// write that is safe to apply out of order or more than once.
func (s *SessionService) ProcessOperations(userCode, deviceID string, ops []models.Operation) (*ProcessOperationsOutput, error) {
	results := make([]models.OperationResult, 0, len(ops))
	for _, op := range ops {
		res := models.OperationResult{OperationID: op.ID}
		data, err := s.applyOperation(userCode, deviceID, op)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Success = true
			res.Data = data
		}
		results = append(results, res)
	}
	return &ProcessOperationsOutput{Results: results, Timestamp: s.now()}, nil
}

func (s *SessionService) applyOperation(userCode, deviceID string, op models.Operation) (any, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	switch op.Type {
	case models.OpStartSession:
		return s.CreateSession(userCode, CreateSessionInput{
			SessionID: op.SessionID,
			DeviceID:  deviceID,
			StartTime: op.Data.StartTime,
		})
	case models.OpEndSession:
		return s.UpdateSession(userCode, op.SessionID, nil, op.Data.EndTime)
	case models.OpUpdateSession:
		return s.UpdateSession(userCode, op.SessionID, op.Data.StartTime, op.Data.EndTime)
	case models.OpDeleteSession:
		return s.DeleteSession(userCode, op.SessionID)
	default:
		return nil, fmt.Errorf("unknown operation type %q", op.Type)
	}
}
