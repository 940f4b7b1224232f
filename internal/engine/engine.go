// Package engine implements the offline-first session synchronization
// engine: it owns the pending operation queue, drains it against the remote
// session service when connectivity allows, and periodically pulls remote
// changes for the caller to merge into its session store.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strainix/timetrack/internal/client"
	"github.com/strainix/timetrack/internal/localdb"
	"github.com/strainix/timetrack/internal/logging"
	"github.com/strainix/timetrack/internal/models"
)

// Activity is the advisory sync-activity state. It never gates operations;
// callers read it for status indicators only.
type Activity string

const (
	ActivityIdle    Activity = "idle"
	ActivitySyncing Activity = "syncing"
	ActivityError   Activity = "error"
)

// errorCooldown is how long Status reports ActivityError before reverting to
// idle so the next cycle is observed fresh.
const errorCooldown = 5 * time.Second

const (
	defaultInterval = 30 * time.Second
	defaultTimeout  = 10 * time.Second
)

type Options struct {
	// Interval between auto-sync cycles; 30s when zero.
	Interval time.Duration
	// RequestTimeout bounds every remote call; a timeout is handled exactly
	// like a network error. 10s when zero.
	RequestTimeout time.Duration
	// AutoSync is the user preference controlling the periodic timer.
	AutoSync bool
}

// Status is an observable snapshot of the engine.
type Status struct {
	Online    bool
	AutoSync  bool
	Activity  Activity
	UserCode  string
	Pending   int
	LastSync  int64
	LastError string
}

// Engine mediates between local state and the remote session service. All
// mutating session calls are optimistic: the caller applies the local effect
// first, and the engine's only job is to confirm remotely or queue a retry;
// it never rolls a local write back.
type Engine struct {
	log     *logging.Logger
	client  *client.Client
	db      *localdb.DB
	queue   *Queue
	emitter *emitter

	interval time.Duration
	timeout  time.Duration

	// mu guards everything below.
	mu         sync.Mutex
	online     bool
	autoSync   bool
	userCode   string
	lastSync   int64
	activity   Activity
	activityAt time.Time
	lastError  string
	inFlight   bool
	running    bool
	stopCh     chan struct{}
}

func New(log *logging.Logger, cl *client.Client, db *localdb.DB, opts Options) (*Engine, error) {
	queue, err := LoadQueue(db)
	if err != nil {
		return nil, err
	}
	code, err := db.UserCode()
	if err != nil {
		return nil, err
	}
	var lastSync int64
	if code != "" {
		if lastSync, err = db.LastSync(code); err != nil {
			return nil, err
		}
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	e := &Engine{
		log:      log,
		client:   cl,
		db:       db,
		queue:    queue,
		emitter:  newEmitter(),
		interval: interval,
		timeout:  timeout,
		autoSync: opts.AutoSync,
		userCode: code,
		lastSync: lastSync,
		activity: ActivityIdle,
	}
	return e, nil
}

// On subscribes to an engine event; the returned func unsubscribes.
func (e *Engine) On(ev Event, fn func(any)) func() {
	return e.emitter.on(ev, fn)
}

// Start begins the engine lifecycle: the periodic timer runs whenever
// auto-sync is enabled, a user code is set, and the engine is online.
func (e *Engine) Start() {
	e.mu.Lock()
	e.startTickerLocked()
	e.mu.Unlock()
}

// Stop cancels the periodic timer. Pending operations stay queued.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopTickerLocked()
	e.mu.Unlock()
}

// SetOnline injects the platform connectivity signal. Going online triggers
// one immediate drain-and-fetch cycle and resumes the timer; going offline
// stops the timer while operations keep queueing locally.
func (e *Engine) SetOnline(ctx context.Context, online bool) {
	e.mu.Lock()
	if e.online == online {
		e.mu.Unlock()
		return
	}
	e.online = online
	if online {
		e.startTickerLocked()
	} else {
		e.stopTickerLocked()
	}
	e.mu.Unlock()

	if online {
		e.emitter.emit(EventOnline, nil)
		e.SyncNow(ctx)
	} else {
		e.emitter.emit(EventOffline, nil)
	}
}

// SetAutoSync flips the user preference for the periodic timer.
func (e *Engine) SetAutoSync(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoSync = enabled
	if enabled {
		e.startTickerLocked()
	} else {
		e.stopTickerLocked()
	}
}

// SetUserCode activates synchronization for an account code and loads its
// stored watermark.
func (e *Engine) SetUserCode(code string) error {
	if err := e.db.SetUserCode(code); err != nil {
		return err
	}
	lastSync, err := e.db.LastSync(code)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userCode = code
	e.lastSync = lastSync
	e.startTickerLocked()
	return nil
}

func (e *Engine) UserCode() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userCode
}

// GenerateUserCode mints a fresh account code on the server and adopts it.
// Unlike the session mutations this has no offline fallback: there is
// nothing sensible to queue, so the error surfaces.
func (e *Engine) GenerateUserCode(ctx context.Context) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	resp, err := e.client.GenerateUserCode(cctx)
	if err != nil {
		return "", err
	}
	if err := e.SetUserCode(resp.Code); err != nil {
		return "", err
	}
	e.emitter.emit(EventUserCodeGenerated, resp.Code)
	return resp.Code, nil
}

// StartSession records a check-in. Online it asks the server to create the
// session (which also closes any other open one); on any failure it queues a
// start operation under a locally minted id. The returned id is final either
// way: both id spaces are UUIDs, so nothing needs reconciling later.
func (e *Engine) StartSession(ctx context.Context, startTime int64) string {
	online, code := e.connection()
	if online && code != "" {
		cctx, cancel := context.WithTimeout(ctx, e.timeout)
		resp, err := e.client.CreateSession(cctx, code, startTime)
		cancel()
		if err == nil {
			e.emitter.emit(EventSessionStarted, SessionEvent{SessionID: resp.SessionID, StartTime: &startTime})
			return resp.SessionID
		}
		e.log.Debugf("online start failed, queueing: %v", err)
	}
	id := uuid.NewString()
	e.enqueue(ctx, models.OpStartSession, id, models.OpData{StartTime: &startTime})
	e.emitter.emit(EventSessionStarted, SessionEvent{SessionID: id, StartTime: &startTime})
	return id
}

// EndSession records a check-out for the given session.
func (e *Engine) EndSession(ctx context.Context, sessionID string, endTime int64) {
	online, code := e.connection()
	if online && code != "" {
		cctx, cancel := context.WithTimeout(ctx, e.timeout)
		_, err := e.client.UpdateSession(cctx, code, sessionID, models.OpData{EndTime: &endTime})
		cancel()
		if err == nil {
			e.emitter.emit(EventSessionEnded, SessionEvent{SessionID: sessionID, EndTime: &endTime})
			return
		}
		e.log.Debugf("online end failed, queueing: %v", err)
	}
	e.enqueue(ctx, models.OpEndSession, sessionID, models.OpData{EndTime: &endTime})
	e.emitter.emit(EventSessionEnded, SessionEvent{SessionID: sessionID, EndTime: &endTime})
}

// UpdateSession edits a session's recorded times.
func (e *Engine) UpdateSession(ctx context.Context, sessionID string, data models.OpData) {
	online, code := e.connection()
	if online && code != "" {
		cctx, cancel := context.WithTimeout(ctx, e.timeout)
		_, err := e.client.UpdateSession(cctx, code, sessionID, data)
		cancel()
		if err == nil {
			e.emitter.emit(EventSessionUpdated, SessionEvent{SessionID: sessionID, StartTime: data.StartTime, EndTime: data.EndTime})
			return
		}
		e.log.Debugf("online update failed, queueing: %v", err)
	}
	e.enqueue(ctx, models.OpUpdateSession, sessionID, data)
	e.emitter.emit(EventSessionUpdated, SessionEvent{SessionID: sessionID, StartTime: data.StartTime, EndTime: data.EndTime})
}

// DeleteSession soft-deletes a session.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) {
	online, code := e.connection()
	if online && code != "" {
		cctx, cancel := context.WithTimeout(ctx, e.timeout)
		_, err := e.client.DeleteSession(cctx, code, sessionID)
		cancel()
		if err == nil {
			e.emitter.emit(EventSessionDeleted, SessionEvent{SessionID: sessionID})
			return
		}
		e.log.Debugf("online delete failed, queueing: %v", err)
	}
	e.enqueue(ctx, models.OpDeleteSession, sessionID, models.OpData{})
	e.emitter.emit(EventSessionDeleted, SessionEvent{SessionID: sessionID})
}

// FetchSessions pulls remote sessions changed since the stored watermark
// (everything when force is set), advances the watermark to the server's
// clock, and emits them for the caller to merge. Errors degrade to a
// syncError emission and a nil return.
func (e *Engine) FetchSessions(ctx context.Context, force bool) []models.Session {
	e.mu.Lock()
	online, code, since := e.online, e.userCode, e.lastSync
	if force {
		since = 0
	}
	if !online || code == "" {
		e.mu.Unlock()
		return nil
	}
	e.setActivityLocked(ActivitySyncing, "")
	e.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	resp, err := e.client.ListSessions(cctx, code, since)
	cancel()
	if err != nil {
		e.markError(err)
		return nil
	}

	e.mu.Lock()
	e.lastSync = resp.Timestamp
	e.setActivityLocked(ActivityIdle, "")
	e.mu.Unlock()
	if err := e.db.SetLastSync(code, resp.Timestamp); err != nil {
		e.log.Warnf("persist sync watermark: %v", err)
	}
	e.log.Debugf("fetched %d sessions", len(resp.Sessions))
	e.emitter.emit(EventSessionsReceived, resp.Sessions)
	return resp.Sessions
}

// SyncNow runs one drain-and-fetch cycle immediately.
func (e *Engine) SyncNow(ctx context.Context) {
	e.Drain(ctx)
	e.FetchSessions(ctx, false)
}

// Drain sends the whole pending queue in one batch. A periodic tick and an
// immediate flush can fire close together; the in-flight flag makes the
// second caller back off instead of racing the queue.
func (e *Engine) Drain(ctx context.Context) {
	e.mu.Lock()
	code := e.userCode
	if code == "" || e.inFlight || e.queue.Len() == 0 {
		e.mu.Unlock()
		return
	}
	e.inFlight = true
	e.setActivityLocked(ActivitySyncing, "")
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.inFlight = false
		e.mu.Unlock()
	}()

	ops := e.queue.Snapshot()
	e.log.Debugf("draining %d pending operations", len(ops))
	e.emitter.emit(EventSyncStart, nil)

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	resp, err := e.client.SyncOperations(cctx, code, ops)
	cancel()
	if err != nil {
		e.markError(err)
		return
	}

	dropped, err := e.queue.Apply(resp.Results)
	for _, op := range dropped {
		e.log.Warnf("operation %s (%s) dropped after %d failed attempts", op.ID, op.Type, op.Retries)
		e.emitter.emit(EventOperationDropped, op)
	}
	if err != nil {
		e.markError(err)
		return
	}

	e.mu.Lock()
	e.lastSync = resp.Timestamp
	e.setActivityLocked(ActivityIdle, "")
	e.mu.Unlock()
	if err := e.db.SetLastSync(code, resp.Timestamp); err != nil {
		e.log.Warnf("persist sync watermark: %v", err)
	}
	e.emitter.emit(EventSyncSuccess, resp)
}

// PendingOperations exposes a copy of the queue, mainly for status output.
func (e *Engine) PendingOperations() []models.Operation {
	return e.queue.Snapshot()
}

// Status returns an observable snapshot. A cycle that errored reports
// ActivityError for a short cool-down, then reverts to idle.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activity == ActivityError && time.Since(e.activityAt) >= errorCooldown {
		e.activity = ActivityIdle
	}
	return Status{
		Online:    e.online,
		AutoSync:  e.autoSync,
		Activity:  e.activity,
		UserCode:  e.userCode,
		Pending:   e.queue.Len(),
		LastSync:  e.lastSync,
		LastError: e.lastError,
	}
}

func (e *Engine) connection() (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online, e.userCode
}

// enqueue appends a pending operation and, when a sync target is reachable,
// immediately attempts a flush so short blips clear themselves.
func (e *Engine) enqueue(ctx context.Context, t models.OpType, sessionID string, data models.OpData) {
	op, err := e.queue.Enqueue(t, sessionID, data)
	if err != nil {
		e.log.Errorf("persist queued operation: %v", err)
	}
	e.log.Debugf("queued %s operation %s for session %s", t, op.ID, sessionID)
	online, code := e.connection()
	if online && code != "" {
		e.Drain(ctx)
	}
}

func (e *Engine) markError(err error) {
	e.log.Warnf("sync cycle failed: %v", err)
	e.mu.Lock()
	e.setActivityLocked(ActivityError, err.Error())
	e.mu.Unlock()
	e.emitter.emit(EventSyncError, err)
}

func (e *Engine) setActivityLocked(a Activity, errMsg string) {
	e.activity = a
	e.activityAt = time.Now()
	if a == ActivityError {
		e.lastError = errMsg
	} else if a == ActivityIdle {
		e.lastError = ""
	}
}

func (e *Engine) startTickerLocked() {
	if e.running || !e.autoSync || !e.online || e.userCode == "" {
		return
	}
	e.stopCh = make(chan struct{})
	e.running = true
	go e.runTicker(e.stopCh)
}

func (e *Engine) stopTickerLocked() {
	if e.running {
		close(e.stopCh)
		e.running = false
	}
}

func (e *Engine) runTicker(stop <-chan struct{}) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			online, code := e.connection()
			if online && code != "" {
				e.SyncNow(context.Background())
			}
		}
	}
}
