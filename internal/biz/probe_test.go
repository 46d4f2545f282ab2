package biz

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"FailoverGuard/internal/conf"
	"FailoverGuard/internal/data"
	"FailoverGuard/internal/model"
	dberrors "FailoverGuard/pkg/errors"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestProbe(timeout time.Duration) *HealthProbe {
	return NewHealthProbe(&conf.Failover{ProbeTimeout: timeout}, nil)
}

func TestProbeTarget_Healthy(t *testing.T) {
	p := newTestProbe(time.Second)

	result := p.ProbeTarget(context.Background(), model.RolePrimary, pingerFunc(func(context.Context) error {
		return nil
	}))

	assert.True(t, result.Healthy)
	assert.Equal(t, model.RolePrimary, result.Role)
	assert.Equal(t, dberrors.ErrorKindNone, result.ErrorKind)
	assert.Empty(t, result.Error)
	assert.False(t, result.CheckedAt.IsZero())
}

func TestProbeTarget_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want dberrors.ErrorKind
	}{
		{"mysql access denied", &mysqldriver.MySQLError{Number: 1045, Message: "Access denied for user 'app'"}, dberrors.ErrorKindAuthFailure},
		{"refused", errors.New("dial tcp 10.0.0.1:3306: connect: connection refused"), dberrors.ErrorKindConnectionRefused},
		{"deadline", context.DeadlineExceeded, dberrors.ErrorKindTimeout},
		{"other", errors.New("unexpected packet"), dberrors.ErrorKindUnknown},
	}

	p := newTestProbe(time.Second)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := p.ProbeTarget(context.Background(), model.RoleSecondary, pingerFunc(func(context.Context) error {
				return tt.err
			}))
			assert.False(t, result.Healthy)
			assert.Equal(t, tt.want, result.ErrorKind)
			assert.NotEmpty(t, result.Error)
		})
	}
}

func TestProbeTarget_HangingDriverIsBounded(t *testing.T) {
	p := newTestProbe(50 * time.Millisecond)
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	result := p.ProbeTarget(context.Background(), model.RolePrimary, pingerFunc(func(context.Context) error {
		// ignores ctx like a stuck driver would
		<-release
		return nil
	}))
	elapsed := time.Since(start)

	assert.False(t, result.Healthy)
	assert.Equal(t, dberrors.ErrorKindTimeout, result.ErrorKind)
	assert.True(t, strings.HasSuffix(result.Error, "timed out: context deadline exceeded"), result.Error)
	assert.Equal(t, 1, strings.Count(result.Error, "timed out"))
	assert.Less(t, elapsed, time.Second)
}

func TestCanceledCheckIsNotTimeout(t *testing.T) {
	p := newTestProbe(time.Minute)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	go func() {
		<-started
		cancel()
	}()

	result := p.ProbeTarget(ctx, model.RolePrimary, pingerFunc(func(context.Context) error {
		close(started)
		<-release
		return nil
	}))

	assert.False(t, result.Healthy)
	assert.Equal(t, dberrors.ErrorKindUnknown, result.ErrorKind)
	assert.Contains(t, result.Error, "canceled: context canceled")
	assert.NotContains(t, result.Error, "timed out")
}

func TestProbeTarget_PanicIsUnhealthy(t *testing.T) {
	p := newTestProbe(time.Second)

	result := p.ProbeTarget(context.Background(), model.RolePrimary, pingerFunc(func(context.Context) error {
		panic("nil connection")
	}))

	assert.False(t, result.Healthy)
	assert.Equal(t, dberrors.ErrorKindUnknown, result.ErrorKind)
	assert.Contains(t, result.Error, "nil connection")
}

func newSQLMockReplica(t *testing.T, role model.ReplicaRole) (*data.Replica, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	r, err := data.NewReplica(role, &conf.Replica{ID: "db-" + string(role), Driver: "mysql"}, db)
	require.NoError(t, err)
	return r, mock
}

func TestHealthProbe_ProbeReplicaSet(t *testing.T) {
	primary, primaryMock := newSQLMockReplica(t, model.RolePrimary)
	secondary, secondaryMock := newSQLMockReplica(t, model.RoleSecondary)

	primaryMock.ExpectPing()
	secondaryMock.ExpectPing().WillReturnError(&mysqldriver.MySQLError{Number: 1045, Message: "Access denied"})

	p := NewHealthProbe(&conf.Failover{ProbeTimeout: time.Second}, data.NewReplicaSetFrom(primary, secondary))

	got := p.Probe(context.Background(), model.RolePrimary)
	assert.True(t, got.Healthy)

	got = p.Probe(context.Background(), model.RoleSecondary)
	assert.False(t, got.Healthy)
	assert.Equal(t, dberrors.ErrorKindAuthFailure, got.ErrorKind)

	assert.NoError(t, primaryMock.ExpectationsWereMet())
	assert.NoError(t, secondaryMock.ExpectationsWereMet())
}

func TestHealthProbe_SlowPingTimesOut(t *testing.T) {
	primary, primaryMock := newSQLMockReplica(t, model.RolePrimary)
	secondary, _ := newSQLMockReplica(t, model.RoleSecondary)

	primaryMock.ExpectPing().WillDelayFor(time.Second)

	p := NewHealthProbe(&conf.Failover{ProbeTimeout: 30 * time.Millisecond}, data.NewReplicaSetFrom(primary, secondary))

	start := time.Now()
	got := p.Probe(context.Background(), model.RolePrimary)

	assert.False(t, got.Healthy)
	assert.Equal(t, dberrors.ErrorKindTimeout, got.ErrorKind)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
