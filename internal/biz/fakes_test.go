package biz

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"FailoverGuard/internal/conf"
	"FailoverGuard/internal/model"
	dberrors "FailoverGuard/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/mock"
)

// scriptedProber returns queued health results per role; an empty queue repeats the last one.
type scriptedProber struct {
	mu     sync.Mutex
	script map[model.ReplicaRole][]bool
	last   map[model.ReplicaRole]bool
	panics bool

	// entered is non-nil while checks hang until their context ends
	entered chan model.ReplicaRole
}

func newScriptedProber() *scriptedProber {
	return &scriptedProber{
		script: map[model.ReplicaRole][]bool{},
		last:   map[model.ReplicaRole]bool{model.RolePrimary: true, model.RoleSecondary: true},
	}
}

// next queues one result for each replica.
func (p *scriptedProber) next(primaryHealthy, secondaryHealthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script[model.RolePrimary] = append(p.script[model.RolePrimary], primaryHealthy)
	p.script[model.RoleSecondary] = append(p.script[model.RoleSecondary], secondaryHealthy)
}

// hang makes every following check block until its context is done. The
// returned channel receives the role of each check as it starts.
func (p *scriptedProber) hang() <-chan model.ReplicaRole {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entered = make(chan model.ReplicaRole, 2)
	return p.entered
}

func (p *scriptedProber) Probe(ctx context.Context, role model.ReplicaRole) model.ProbeResult {
	p.mu.Lock()
	entered := p.entered
	p.mu.Unlock()
	if entered != nil {
		entered <- role
		<-ctx.Done()
		return model.ProbeResult{Role: role, ErrorKind: dberrors.ErrorKindTimeout, Error: ctx.Err().Error()}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.panics {
		panic("driver exploded")
	}

	healthy := p.last[role]
	if q := p.script[role]; len(q) > 0 {
		healthy, p.script[role] = q[0], q[1:]
		p.last[role] = healthy
	}

	result := model.ProbeResult{Role: role, Healthy: healthy, Latency: 3 * time.Millisecond}
	if !healthy {
		result.ErrorKind = dberrors.ErrorKindConnectionRefused
		result.Error = fmt.Sprintf("dial tcp %s: connection refused", role)
	}
	return result
}

// memoryRepo is an in-memory FailoverStateRepo. The first loadFailures
// calls to Load behave like an unreachable store.
type memoryRepo struct {
	mu           sync.Mutex
	state        *model.FailoverState
	saves        int
	loads        int
	loadFailures int
}

func (r *memoryRepo) Load(context.Context) (model.FailoverState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.loads <= r.loadFailures {
		return model.DefaultFailoverState(), errors.New("failover state store unavailable: connection refused")
	}
	if r.state == nil {
		return model.DefaultFailoverState(), nil
	}
	return r.state.Clone(), nil
}

func (r *memoryRepo) Save(_ context.Context, s model.FailoverState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := s.Clone()
	r.state = &c
	r.saves++
	return nil
}

func (r *memoryRepo) Name() string { return "memory" }

func (r *memoryRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *memoryRepo) saved() model.FailoverState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// MockStateRepo is a mock implementation of FailoverStateRepo for testing.
type MockStateRepo struct {
	mock.Mock
}

func (m *MockStateRepo) Load(ctx context.Context) (model.FailoverState, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.FailoverState), args.Error(1)
}

func (m *MockStateRepo) Save(ctx context.Context, s model.FailoverState) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockStateRepo) Name() string { return "mock" }

// recordingDispatcher records every event it receives.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []model.AlertEvent
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, e model.AlertEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return d.err
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

func (d *recordingDispatcher) ofType(typ model.AlertType) []model.AlertEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []model.AlertEvent
	for _, e := range d.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// recordingRouter remembers the last designated role.
type recordingRouter struct {
	mu     sync.Mutex
	active model.ReplicaRole
}

func (r *recordingRouter) SetActive(role model.ReplicaRole) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = role
}

func (r *recordingRouter) current() model.ReplicaRole {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

type staticCatalog struct{}

func (staticCatalog) Infos() map[model.ReplicaRole]model.ReplicaInfo {
	return map[model.ReplicaRole]model.ReplicaInfo{
		model.RolePrimary:   {Role: model.RolePrimary, ID: "db-a", Region: "eu-west-1", Driver: "mysql"},
		model.RoleSecondary: {Role: model.RoleSecondary, ID: "db-b", Region: "eu-central-1", Driver: "mysql"},
	}
}

// fakeClock advances only when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	uc     *FailoverUsecase
	prober *scriptedProber
	repo   FailoverStateRepo
	alerts *recordingDispatcher
	router *recordingRouter
	clock  *fakeClock
}

var scenarioT0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func defaultFailoverConf() *conf.Failover {
	return &conf.Failover{
		MaxFailedAttempts:   3,
		TickInterval:        60 * time.Second,
		RecoveryGracePeriod: 300 * time.Second,
		ProbeTimeout:        5 * time.Second,
	}
}

func newHarness(t *testing.T, repo FailoverStateRepo) *harness {
	t.Helper()
	if repo == nil {
		repo = &memoryRepo{}
	}
	h := &harness{
		prober: newScriptedProber(),
		repo:   repo,
		alerts: &recordingDispatcher{},
		router: &recordingRouter{},
		clock:  &fakeClock{now: scenarioT0},
	}
	h.uc = NewFailoverUsecase(
		defaultFailoverConf(),
		&conf.Alert{Timeout: time.Second, SuppressWindow: 15 * time.Minute},
		h.prober, h.repo, h.router, h.alerts, staticCatalog{},
		NewFailoverMetrics(),
		log.NewStdLogger(os.Stdout),
	)
	h.uc.now = h.clock.Now
	return h
}

// tick advances the clock by d, queues one probe result per replica and runs a tick.
func (h *harness) tick(t *testing.T, d time.Duration, primaryHealthy, secondaryHealthy bool) *model.HealthSnapshot {
	t.Helper()
	h.clock.Advance(d)
	h.prober.next(primaryHealthy, secondaryHealthy)
	if err := h.uc.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	return h.uc.Snapshot()
}

func (h *harness) waitAlerts(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.uc.WaitAlerts(ctx); err != nil {
		t.Fatalf("alerts did not finish: %v", err)
	}
}
