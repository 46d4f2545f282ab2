package biz

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"FailoverGuard/internal/conf"
	"FailoverGuard/internal/model"
	dberrors "FailoverGuard/pkg/errors"
	pkglog "FailoverGuard/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const bothDownAlertKey = "both_down"

// ReplicaProber runs one bounded liveness check against the replica holding role.
type ReplicaProber interface {
	Probe(ctx context.Context, role model.ReplicaRole) model.ProbeResult
}

// FailoverStateRepo persists the failover state record. Load returns usable
// defaults alongside a non-nil error when the store cannot be read; the
// stored record must then be treated as unknown, not absent.
type FailoverStateRepo interface {
	Load(ctx context.Context) (model.FailoverState, error)
	Save(ctx context.Context, state model.FailoverState) error
	Name() string
}

// AlertDispatcher notifies humans about switches and outages.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, event model.AlertEvent) error
}

// ConnectionRouter serves the handle of the replica designated active.
type ConnectionRouter interface {
	SetActive(role model.ReplicaRole)
}

// ReplicaCatalog describes the configured replicas.
type ReplicaCatalog interface {
	Infos() map[model.ReplicaRole]model.ReplicaInfo
}

// FailoverUsecase is the failover state machine. It exclusively owns the
// FailoverState; everybody else reads the HealthSnapshot it publishes after
// every tick.
type FailoverUsecase struct {
	policy       FailoverPolicy
	tickInterval time.Duration
	alertTimeout time.Duration

	prober   ReplicaProber
	repo     FailoverStateRepo
	router   ConnectionRouter
	alerts   AlertDispatcher
	metrics  *FailoverMetrics
	replicas map[model.ReplicaRole]model.ReplicaInfo
	throttle *alertThrottle
	log      *pkglog.LogHelper

	now   func() time.Time
	newID func() string

	// mu serializes ticks; the fields below it are only touched while holding it.
	mu              sync.Mutex
	state           model.FailoverState
	stateLoaded     bool
	bothDown        bool
	lastPersistedAt time.Time
	persistErr      string

	snapshot atomic.Pointer[model.HealthSnapshot]
	alertWG  sync.WaitGroup
}

// NewFailoverUsecase loads the persisted state, points the router at the
// replica recorded as active and publishes an initial "not yet checked" snapshot.
func NewFailoverUsecase(
	fc *conf.Failover,
	ac *conf.Alert,
	prober ReplicaProber,
	repo FailoverStateRepo,
	router ConnectionRouter,
	alerts AlertDispatcher,
	catalog ReplicaCatalog,
	metrics *FailoverMetrics,
	logger log.Logger,
) *FailoverUsecase {
	alertTimeout, suppress := 5*time.Second, time.Duration(0)
	if ac != nil {
		if ac.Timeout > 0 {
			alertTimeout = ac.Timeout
		}
		suppress = ac.SuppressWindow
	}

	uc := &FailoverUsecase{
		policy: FailoverPolicy{
			MaxFailedAttempts:   fc.MaxFailedAttempts,
			RecoveryGracePeriod: fc.RecoveryGracePeriod,
		},
		tickInterval: fc.TickInterval,
		alertTimeout: alertTimeout,
		prober:       prober,
		repo:         repo,
		router:       router,
		alerts:       alerts,
		metrics:      metrics,
		replicas:     catalog.Infos(),
		throttle:     newAlertThrottle(suppress),
		log:          pkglog.NewLogHelper(log.With(logger, "module", "biz/failover")),
		now:          time.Now,
		newID:        uuid.NewString,
	}

	uc.loadState(context.Background())
	router.SetActive(uc.state.ActiveReplica)
	uc.publish(model.ProbeResult{Role: model.RolePrimary}, model.ProbeResult{Role: model.RoleSecondary}, false)

	uc.log.Startup("failover controller initialized",
		"active_replica", string(uc.state.ActiveReplica),
		"state_store", repo.Name(),
		"max_failed_attempts", uc.policy.MaxFailedAttempts,
		"recovery_grace_period", uc.policy.RecoveryGracePeriod.String(),
		"tick_interval", uc.tickInterval.String())

	return uc
}

// Tick runs one evaluation: probe both replicas concurrently, fold the
// results into the state, apply the switch rules, persist, update the router,
// publish the snapshot and raise alerts. A panic inside the evaluation is
// recovered and returned as an error so the caller's loop keeps running.
func (uc *FailoverUsecase) Tick(ctx context.Context) (err error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			uc.metrics.TickPanics.Inc()
			uc.log.Errorw("msg", "failover tick panicked",
				"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			err = fmt.Errorf("failover tick panicked: %v", r)
		}
	}()

	if !uc.stateLoaded && uc.loadState(ctx) {
		uc.router.SetActive(uc.state.ActiveReplica)
	}

	primary, secondary := uc.probeBoth(ctx)
	if ctx.Err() != nil {
		// results of a cut-short round say nothing about the replicas
		uc.log.Warnw("msg", "failover tick interrupted, discarding probe results", "error", ctx.Err(), "type", "failover")
		return ctx.Err()
	}
	now := uc.now()

	next := uc.state.Clone()
	foldProbe(&next, primary, now)
	foldProbe(&next, secondary, now)

	t := evaluateTransitions(&next, primary.Healthy, secondary.Healthy, now, uc.policy)

	if now.After(next.LastCheckAt) {
		next.LastCheckAt = now
	}

	wasBothDown := uc.bothDown
	uc.state = next
	uc.bothDown = t.BothDown

	uc.persist(ctx, now)
	uc.router.SetActive(next.ActiveReplica)
	uc.publish(primary, secondary, true)
	uc.metrics.observeTick(next, primary, secondary)

	switch {
	case t.Switched():
		uc.metrics.Switches.WithLabelValues(string(t.From), string(t.To)).Inc()
		uc.log.Failover(fmt.Sprintf("switched active replica from %s to %s", t.From, t.To),
			"transition", t.Kind.String(),
			"reason", t.Reason,
			"primary_failure_count", next.PrimaryFailureCount,
			"secondary_failure_count", next.SecondaryFailureCount)
		uc.raise(uc.switchAlert(t, now))
	case t.BothDown:
		uc.metrics.BothDownTicks.Inc()
		uc.log.Errorw("msg", "both replicas are unhealthy, keeping active replica",
			"active_replica", string(next.ActiveReplica),
			"primary_error", primary.Error,
			"secondary_error", secondary.Error,
			"type", "failover")
		if uc.throttle.allow(bothDownAlertKey, now) {
			uc.raise(uc.newAlert(model.AlertBothDown, model.SeverityCritical,
				"both database replicas are unhealthy", now))
		} else {
			uc.metrics.AlertsSuppressed.WithLabelValues(string(model.AlertBothDown)).Inc()
		}
	}

	if wasBothDown && !t.BothDown {
		uc.throttle.reset(bothDownAlertKey)
		uc.log.Success("replica availability restored", "active_replica", string(next.ActiveReplica))
		uc.raise(uc.newAlert(model.AlertBothDownResolved, model.SeverityWarning,
			fmt.Sprintf("at least one replica is healthy again, serving from %s", next.ActiveReplica), now))
	}

	return nil
}

// probeBoth runs both probes concurrently; each is bounded by the probe
// timeout, so the pair completes within one timeout.
func (uc *FailoverUsecase) probeBoth(ctx context.Context) (primary, secondary model.ProbeResult) {
	var g errgroup.Group
	g.Go(func() error {
		primary = uc.safeProbe(ctx, model.RolePrimary)
		return nil
	})
	g.Go(func() error {
		secondary = uc.safeProbe(ctx, model.RoleSecondary)
		return nil
	})
	_ = g.Wait()

	for _, p := range []model.ProbeResult{primary, secondary} {
		uc.log.Probe(string(p.Role), p.Healthy, p.LatencyMs(), "error_kind", p.ErrorKind.String(), "error", p.Error)
	}
	return primary, secondary
}

// safeProbe turns a panicking prober into an unhealthy result.
func (uc *FailoverUsecase) safeProbe(ctx context.Context, role model.ReplicaRole) (result model.ProbeResult) {
	defer func() {
		if r := recover(); r != nil {
			result = model.ProbeResult{
				Role:      role,
				ErrorKind: dberrors.ErrorKindUnknown,
				Error:     fmt.Sprintf("probe panicked: %v", r),
				CheckedAt: uc.now(),
			}
		}
	}()
	result = uc.prober.Probe(ctx, role)
	result.Role = role
	return result
}

// loadState reads the durable record into uc.state and reports whether it
// succeeded. While the store is unreachable the controller runs on defaults
// and persist refuses to overwrite the record it could not read.
func (uc *FailoverUsecase) loadState(ctx context.Context) bool {
	state, err := uc.repo.Load(ctx)
	if err != nil {
		if uc.state.ActiveReplica == "" {
			uc.state = state
		}
		uc.persistErr = fmt.Sprintf("failover state not loaded yet, not overwriting it: %v", err)
		uc.log.Errorw("msg", "failed to load failover state, will retry before the next tick",
			"state_store", uc.repo.Name(), "error", err, "type", "persistence")
		return false
	}

	if uc.state.ActiveReplica != "" && uc.state.ActiveReplica != state.ActiveReplica {
		uc.log.Persistence("adopting stored failover state over in-memory defaults",
			"state_store", uc.repo.Name(),
			"in_memory_active", string(uc.state.ActiveReplica),
			"stored_active", string(state.ActiveReplica))
	}
	uc.state = state
	uc.stateLoaded = true
	uc.persistErr = ""
	return true
}

// persist saves the state. A failure keeps the in-memory state; the next tick saves again.
// Nothing is written until the stored record has been read once.
func (uc *FailoverUsecase) persist(ctx context.Context, now time.Time) {
	if !uc.stateLoaded {
		uc.metrics.PersistErrors.Inc()
		uc.log.Warnw("msg", "skipping failover state save until the stored record can be read",
			"state_store", uc.repo.Name(), "type", "persistence")
		return
	}
	if err := uc.repo.Save(ctx, uc.state); err != nil {
		uc.metrics.PersistErrors.Inc()
		uc.persistErr = err.Error()
		uc.log.Errorw("msg", "failed to persist failover state, keeping it in memory until the next tick",
			"state_store", uc.repo.Name(), "error", err, "type", "persistence")
		return
	}
	uc.persistErr = ""
	uc.lastPersistedAt = now
}

func (uc *FailoverUsecase) publish(primary, secondary model.ProbeResult, checked bool) {
	uc.snapshot.Store(&model.HealthSnapshot{
		State:               uc.state.Clone(),
		Checked:             checked,
		Primary:             primary,
		Secondary:           secondary,
		BothDown:            uc.bothDown,
		Replicas:            uc.replicas,
		MaxFailedAttempts:   uc.policy.MaxFailedAttempts,
		TickInterval:        uc.tickInterval,
		RecoveryGracePeriod: uc.policy.RecoveryGracePeriod,
		StateStore:          uc.repo.Name(),
		LastPersistedAt:     uc.lastPersistedAt,
		PersistError:        uc.persistErr,
	})
}

// Snapshot returns a copy of the last published view. It never blocks on a tick or probes.
func (uc *FailoverUsecase) Snapshot() *model.HealthSnapshot {
	snap := *uc.snapshot.Load()
	snap.State = snap.State.Clone()
	return &snap
}

// SendSummary dispatches a summary alert built from the current snapshot and
// waits for the dispatcher.
func (uc *FailoverUsecase) SendSummary(ctx context.Context) error {
	snap := uc.Snapshot()
	now := uc.now()

	msg := fmt.Sprintf("serving from %s; primary %s, secondary %s",
		snap.State.ActiveReplica, healthWord(snap, model.RolePrimary), healthWord(snap, model.RoleSecondary))
	if !snap.Checked {
		msg = "no health check has completed yet"
	}

	event := uc.buildAlert(snap, model.AlertSummary, model.SeverityInfo, msg, now)

	ctx, cancel := context.WithTimeout(ctx, uc.alertTimeout)
	defer cancel()
	if err := uc.alerts.Dispatch(ctx, event); err != nil {
		uc.metrics.AlertsSent.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("failed to send summary alert: %w", err)
	}
	uc.metrics.AlertsSent.WithLabelValues(string(event.Type), "ok").Inc()
	return nil
}

// WaitAlerts blocks until in-flight alerts finish or ctx is done.
func (uc *FailoverUsecase) WaitAlerts(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		uc.alertWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// raise hands event to the dispatcher in the background with its own timeout.
// Dispatcher failures are logged and counted, never fed back into the tick.
func (uc *FailoverUsecase) raise(event model.AlertEvent) {
	uc.alertWG.Add(1)
	go func() {
		defer uc.alertWG.Done()
		defer func() {
			if r := recover(); r != nil {
				uc.log.Errorw("msg", "alert dispatcher panicked", "alert_id", event.ID, "panic", fmt.Sprint(r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), uc.alertTimeout)
		defer cancel()

		if err := uc.alerts.Dispatch(ctx, event); err != nil {
			uc.metrics.AlertsSent.WithLabelValues(string(event.Type), "error").Inc()
			uc.log.Warnw("msg", "failed to dispatch alert", "alert_id", event.ID, "alert_type", string(event.Type), "error", err, "type", "alert")
			return
		}
		uc.metrics.AlertsSent.WithLabelValues(string(event.Type), "ok").Inc()
	}()
}

func (uc *FailoverUsecase) switchAlert(t Transition, now time.Time) model.AlertEvent {
	if t.Kind == TransitionFailover {
		return uc.newAlert(model.AlertFailover, model.SeverityCritical,
			fmt.Sprintf("failed over from %s to %s: %s", t.From, t.To, t.Reason), now)
	}
	return uc.newAlert(model.AlertFailback, model.SeverityWarning,
		fmt.Sprintf("failed back from %s to %s: %s", t.From, t.To, t.Reason), now)
}

// newAlert builds an event from the snapshot just published.
func (uc *FailoverUsecase) newAlert(typ model.AlertType, sev model.AlertSeverity, msg string, now time.Time) model.AlertEvent {
	return uc.buildAlert(uc.Snapshot(), typ, sev, msg, now)
}

func (uc *FailoverUsecase) buildAlert(snap *model.HealthSnapshot, typ model.AlertType, sev model.AlertSeverity, msg string, now time.Time) model.AlertEvent {
	return model.AlertEvent{
		ID:              uc.newID(),
		Type:            typ,
		Severity:        sev,
		Message:         msg,
		ActiveReplica:   snap.State.ActiveReplica,
		PrimaryStatus:   replicaStatus(snap, model.RolePrimary),
		SecondaryStatus: replicaStatus(snap, model.RoleSecondary),
		OccurredAt:      now,
		LastSwitchAt:    snap.State.LastSwitchAt,
		LastCheckAt:     snap.State.LastCheckAt,
	}
}

func replicaStatus(snap *model.HealthSnapshot, role model.ReplicaRole) model.ReplicaStatus {
	info := snap.Replicas[role]
	probe := snap.Probe(role)
	return model.ReplicaStatus{
		ID:           info.ID,
		Region:       info.Region,
		Healthy:      probe.Healthy,
		ErrorKind:    probe.ErrorKind.String(),
		FailureCount: snap.State.FailureCount(role),
		LastFailure:  snap.State.LastFailureAt(role),
		RecoveredAt:  snap.State.RecoveredAt(role),
	}
}

func healthWord(snap *model.HealthSnapshot, role model.ReplicaRole) string {
	if snap.Probe(role).Healthy {
		return "healthy"
	}
	return "unhealthy"
}
