// Package apply implements the project application workflow: users apply to
// projects, owners accept or reject, and applies to one project are
// serialized through a project-scoped lock.
package apply

import (
	"context"
	"fmt"
	"time"

	"devhive-workers/internal/common/errors"
	"devhive-workers/internal/common/lock"
	"devhive-workers/internal/common/logger"
	"devhive-workers/internal/common/metrics"
	"devhive-workers/internal/common/observability"
	"devhive-workers/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultLockTTL       = 5 * time.Second
	DefaultRetryInterval = 200 * time.Millisecond
	DefaultKeyPrefix     = "PROJECT_"

	releaseTimeout = 2 * time.Second
)

// LockPolicy controls the apply critical section. MaxWait of zero waits until
// the caller's context ends.
type LockPolicy struct {
	TTL           time.Duration
	RetryInterval time.Duration
	MaxWait       time.Duration
	KeyPrefix     string
}

func (p LockPolicy) withDefaults() LockPolicy {
	if p.TTL <= 0 {
		p.TTL = DefaultLockTTL
	}
	if p.RetryInterval <= 0 {
		p.RetryInterval = DefaultRetryInterval
	}
	if p.KeyPrefix == "" {
		p.KeyPrefix = DefaultKeyPrefix
	}
	return p
}

// Key returns the lock key for a project.
func (p LockPolicy) Key(projectID int64) string {
	return fmt.Sprintf("%s%d", p.KeyPrefix, projectID)
}

// Workflow is safe for concurrent use.
type Workflow struct {
	store     ApplicationStore
	projects  ProjectDirectory
	locker    lock.Locker
	publisher Publisher
	policy    LockPolicy
	obs       *observability.Observability
	logger    logger.Logger
	now       func() time.Time
}

type Option func(*Workflow)

func WithPublisher(p Publisher) Option {
	return func(w *Workflow) { w.publisher = p }
}

func WithObservability(o *observability.Observability) Option {
	return func(w *Workflow) { w.obs = o }
}

func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

func NewWorkflow(
	store ApplicationStore,
	projects ProjectDirectory,
	locker lock.Locker,
	policy LockPolicy,
	log logger.Logger,
	opts ...Option,
) *Workflow {
	w := &Workflow{
		store:     store,
		projects:  projects,
		locker:    locker,
		publisher: NopPublisher{},
		policy:    policy.withDefaults(),
		obs:       &observability.Observability{},
		logger:    log.WithFields(map[string]interface{}{"component": "apply-workflow"}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Project resolves a project through the directory.
func (w *Workflow) Project(ctx context.Context, projectID int64) (models.Project, error) {
	p, err := w.projects.FindProject(ctx, projectID)
	if err != nil {
		return models.Project{}, err
	}
	return *p, nil
}

// ApplyToProject resolves projectID and applies userID to it.
func (w *Workflow) ApplyToProject(ctx context.Context, userID, projectID int64) (models.Application, error) {
	project, err := w.Project(ctx, projectID)
	if err != nil {
		return models.Application{}, err
	}
	return w.Apply(ctx, models.User{ID: userID}, project)
}

// Apply creates a PENDING application for user on project. The duplicate
// check is repeated while holding the project lock so the check and the
// insert are atomic with respect to other applies on the same project.
func (w *Workflow) Apply(ctx context.Context, user models.User, project models.Project) (app models.Application, err error) {
	ctx, finish := w.track(ctx, "apply",
		attribute.Int64("user.id", user.ID), attribute.Int64("project.id", project.ID))
	defer func() { finish(err) }()

	// Project rules first so the owner and closed checks never touch the store.
	if err := CanApply(project, user.ID, nil); err != nil {
		return models.Application{}, err
	}
	existing, err := w.store.FindByUserAndProject(ctx, user.ID, project.ID)
	if err != nil {
		return models.Application{}, err
	}
	if err := CanApply(project, user.ID, existing); err != nil {
		return models.Application{}, err
	}

	err = w.withProjectLock(ctx, project.ID, func(ctx context.Context) error {
		existing, err := w.store.FindByUserAndProject(ctx, user.ID, project.ID)
		if err != nil {
			return err
		}
		if err := CanApply(project, user.ID, existing); err != nil {
			return err
		}

		app, err = w.store.Save(ctx, NewApplication(project.ID, user.ID))
		return err
	})
	if err != nil {
		return models.Application{}, err
	}

	w.logger.Info("application created", map[string]interface{}{
		"applicationId": app.ID,
		"userId":        user.ID,
		"projectId":     project.ID,
		"traceId":       observability.TraceID(ctx),
	})
	w.recordTransition(ctx, EventApplicationCreated, app)
	return app, nil
}

// Cancel deletes the pending application of userID on projectID. It returns
// false without error when the pair has no application.
func (w *Workflow) Cancel(ctx context.Context, userID, projectID int64) (cancelled bool, err error) {
	ctx, finish := w.track(ctx, "cancel",
		attribute.Int64("user.id", userID), attribute.Int64("project.id", projectID))
	defer func() { finish(err) }()

	app, err := w.store.FindByUserAndProject(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	if app == nil {
		return false, nil
	}
	if err := CanCancel(*app, userID); err != nil {
		return false, err
	}
	if err := w.store.Delete(ctx, *app); err != nil {
		return false, err
	}

	w.logger.Info("application cancelled", map[string]interface{}{
		"applicationId": app.ID,
		"userId":        userID,
		"projectId":     projectID,
	})
	w.recordTransition(ctx, EventApplicationCancelled, *app)
	return true, nil
}

// ListByProject returns every application for projectID in creation order.
func (w *Workflow) ListByProject(ctx context.Context, projectID int64) (apps []models.Application, err error) {
	ctx, finish := w.track(ctx, "list", attribute.Int64("project.id", projectID))
	defer func() { finish(err) }()

	return w.store.FindByProject(ctx, projectID)
}

// Accept moves a pending application to ACCEPT. The caller must already have
// checked that the requester owns the project; AcceptByOwner does both.
func (w *Workflow) Accept(ctx context.Context, app models.Application, requesterID int64) (out models.Application, err error) {
	ctx, finish := w.track(ctx, "accept",
		attribute.String("application.id", app.ID), attribute.Int64("user.id", requesterID))
	defer func() { finish(err) }()

	if err := CanAccept(app, requesterID); err != nil {
		return app, err
	}
	return w.persistTransition(ctx, app, EventAccept, EventApplicationAccepted)
}

// AcceptByOwner resolves applicationID and its project, checks that
// requesterID owns the project and accepts the application.
func (w *Workflow) AcceptByOwner(ctx context.Context, requesterID int64, applicationID string) (models.Application, error) {
	app, err := w.store.FindByID(ctx, applicationID)
	if err != nil {
		return models.Application{}, err
	}
	project, err := w.Project(ctx, app.ProjectID)
	if err != nil {
		return models.Application{}, err
	}
	if !project.IsOwnedBy(requesterID) {
		return *app, errors.NewUnauthorizedError(
			fmt.Sprintf("user %d does not own project %d", requesterID, project.ID))
	}
	return w.Accept(ctx, *app, requesterID)
}

// Reject resolves applicationID and moves it to REJECT if requesterID owns
// its project.
func (w *Workflow) Reject(ctx context.Context, requesterID int64, applicationID string) (out models.Application, err error) {
	ctx, finish := w.track(ctx, "reject",
		attribute.String("application.id", applicationID), attribute.Int64("user.id", requesterID))
	defer func() { finish(err) }()

	app, err := w.store.FindByID(ctx, applicationID)
	if err != nil {
		return models.Application{}, err
	}
	project, err := w.Project(ctx, app.ProjectID)
	if err != nil {
		return models.Application{}, err
	}
	if err := CanReject(*app, project, requesterID); err != nil {
		return *app, err
	}
	return w.persistTransition(ctx, *app, EventReject, EventApplicationRejected)
}

// StatusFor reports the status of userID's application on projectID. ok is
// false when there is none; err is only ever an infrastructure failure.
func (w *Workflow) StatusFor(ctx context.Context, userID, projectID int64) (status models.ApplyStatus, ok bool, err error) {
	app, err := w.store.FindByUserAndProject(ctx, userID, projectID)
	if err != nil {
		return "", false, err
	}
	if app == nil {
		return "", false, nil
	}
	return app.Status, true, nil
}

func (w *Workflow) persistTransition(ctx context.Context, app models.Application, event Event, eventType EventType) (models.Application, error) {
	next, err := Transition(app, event, w.now())
	if err != nil {
		return app, err
	}

	saved, err := w.store.Save(ctx, next)
	if err != nil {
		return app, err
	}

	w.logger.Info("application status changed", map[string]interface{}{
		"applicationId": saved.ID,
		"projectId":     saved.ProjectID,
		"from":          string(app.Status),
		"to":            string(saved.Status),
		"traceId":       observability.TraceID(ctx),
	})
	w.recordTransition(ctx, eventType, saved)
	return saved, nil
}

// withProjectLock runs fn while holding the lock for projectID. The lock is
// released on every return path, including when fn fails or panics.
func (w *Workflow) withProjectLock(ctx context.Context, projectID int64, fn func(ctx context.Context) error) error {
	key := w.policy.Key(projectID)

	token, err := w.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer w.release(ctx, key, token)

	return fn(ctx)
}

// acquire polls the locker at a fixed interval until the lock is obtained,
// the context ends or MaxWait elapses.
func (w *Workflow) acquire(ctx context.Context, key string) (string, error) {
	start := w.now()

	var deadline <-chan time.Time
	if w.policy.MaxWait > 0 {
		timer := time.NewTimer(w.policy.MaxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(w.policy.RetryInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		token, ok, err := w.locker.TryAcquire(ctx, key, w.policy.TTL)
		if err != nil {
			if ctx.Err() != nil {
				return "", w.lockTimeout(key, start, ctx.Err())
			}
			metrics.ProjectLockAttempts.WithLabelValues(metrics.LockUnavailable).Inc()
			w.logger.Error("lock service unavailable", map[string]interface{}{
				"key":   key,
				"error": err,
			})
			return "", errors.NewLockUnavailableError(key, err)
		}
		if ok {
			metrics.ProjectLockAttempts.WithLabelValues(metrics.LockAcquired).Inc()
			metrics.ProjectLockWait.Observe(w.now().Sub(start).Seconds())
			if attempt > 1 {
				w.logger.Debug("project lock acquired after contention", map[string]interface{}{
					"key":      key,
					"attempts": attempt,
				})
			}
			return token, nil
		}

		metrics.ProjectLockAttempts.WithLabelValues(metrics.LockContended).Inc()
		w.logger.Debug("project lock busy, retrying", map[string]interface{}{
			"key":     key,
			"attempt": attempt,
		})

		select {
		case <-ctx.Done():
			return "", w.lockTimeout(key, start, ctx.Err())
		case <-deadline:
			return "", w.lockTimeout(key, start, nil)
		case <-ticker.C:
		}
	}
}

func (w *Workflow) lockTimeout(key string, start time.Time, cause error) error {
	waited := w.now().Sub(start)
	metrics.ProjectLockAttempts.WithLabelValues(metrics.LockTimedOut).Inc()
	metrics.ProjectLockWait.Observe(waited.Seconds())
	w.logger.Warn("gave up waiting for project lock", map[string]interface{}{
		"key":    key,
		"waited": waited.String(),
	})
	return errors.NewLockTimeoutError(key, waited, cause)
}

// release runs even when ctx is already cancelled. A failed release is only
// logged: the TTL frees the lock.
func (w *Workflow) release(ctx context.Context, key, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := w.locker.Release(ctx, key, token); err != nil {
		w.logger.Warn("project lock release failed", map[string]interface{}{
			"key":   key,
			"ttl":   w.policy.TTL.String(),
			"error": err,
		})
	}
}

func (w *Workflow) recordTransition(ctx context.Context, eventType EventType, app models.Application) {
	metrics.ApplicationTransitions.WithLabelValues(string(eventType)).Inc()

	if err := w.publisher.Publish(ctx, newWorkflowEvent(eventType, app, w.now())); err != nil {
		metrics.EventPublishFailures.WithLabelValues(string(eventType)).Inc()
		w.logger.Warn("workflow event not published", map[string]interface{}{
			"eventType":     string(eventType),
			"applicationId": app.ID,
			"error":         err,
		})
	}
}

// track opens a span and returns a func recording the outcome.
func (w *Workflow) track(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := w.now()
	ctx, span := w.obs.StartSpan(ctx, "apply."+operation, attrs...)

	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = string(errors.CodeOf(err))
		}
		w.obs.RecordOperation(ctx, operation, outcome, w.now().Sub(start))
		observability.EndSpan(span, err)
	}
}
