package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FailoverGuard/internal/conf"
	"FailoverGuard/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	_ "github.com/lib/pq" // registers the "postgres" database/sql driver
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Replica is one eagerly opened database handle. Only the controller decides
// whether it serves traffic; Replica itself carries no health state.
type Replica struct {
	Role   model.ReplicaRole
	ID     string
	Region string
	Driver string
	DB     *gorm.DB

	sqlDB *sql.DB
}

// NewReplica wraps an already opened gorm handle.
func NewReplica(role model.ReplicaRole, rc *conf.Replica, db *gorm.DB) (*Replica, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB for %s replica: %w", role, err)
	}
	return &Replica{
		Role:   role,
		ID:     rc.ID,
		Region: rc.Region,
		Driver: rc.Driver,
		DB:     db,
		sqlDB:  sqlDB,
	}, nil
}

// Ping performs one driver round-trip. The caller bounds it with ctx.
func (r *Replica) Ping(ctx context.Context) error {
	return r.sqlDB.PingContext(ctx)
}

// Info returns the display-safe description (no DSN).
func (r *Replica) Info() model.ReplicaInfo {
	return model.ReplicaInfo{
		Role:   r.Role,
		ID:     r.ID,
		Region: r.Region,
		Driver: r.Driver,
	}
}

// Close releases the underlying pool.
func (r *Replica) Close() error {
	return r.sqlDB.Close()
}

// ReplicaSet holds both replica handles for the lifetime of the process.
type ReplicaSet struct {
	primary   *Replica
	secondary *Replica
}

// NewReplicaSetFrom assembles a set from already built replicas.
func NewReplicaSetFrom(primary, secondary *Replica) *ReplicaSet {
	return &ReplicaSet{primary: primary, secondary: secondary}
}

// Get returns the replica for role.
func (s *ReplicaSet) Get(role model.ReplicaRole) *Replica {
	if role == model.RoleSecondary {
		return s.secondary
	}
	return s.primary
}

// Infos returns the static description of both replicas keyed by role.
func (s *ReplicaSet) Infos() map[model.ReplicaRole]model.ReplicaInfo {
	return map[model.ReplicaRole]model.ReplicaInfo{
		model.RolePrimary:   s.primary.Info(),
		model.RoleSecondary: s.secondary.Info(),
	}
}

// NewReplicaSet opens both replicas. No connection is attempted here, so a
// replica that is down at boot does not block startup; the first tick will
// report it unhealthy instead.
func NewReplicaSet(c *conf.Data, l log.Logger) (*ReplicaSet, func(), error) {
	helper := log.NewHelper(l)

	if c == nil || c.Primary == nil || c.Secondary == nil {
		helper.Error("replica configuration is missing")
		return nil, nil, fmt.Errorf("both primary and secondary replicas must be configured")
	}

	gormLogger := logger.New(
		&gormLogAdapter{helper: helper},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	primary, err := openReplica(model.RolePrimary, c.Primary, c.Pool, gormLogger)
	if err != nil {
		return nil, nil, err
	}
	secondary, err := openReplica(model.RoleSecondary, c.Secondary, c.Pool, gormLogger)
	if err != nil {
		_ = primary.Close()
		return nil, nil, err
	}

	helper.Infow("msg", "replica handles initialized",
		"primary_id", primary.ID, "primary_region", primary.Region, "primary_driver", primary.Driver,
		"secondary_id", secondary.ID, "secondary_region", secondary.Region, "secondary_driver", secondary.Driver)

	cleanup := func() {
		helper.Info("closing replica connections")
		for _, r := range []*Replica{primary, secondary} {
			if err := r.Close(); err != nil {
				helper.Errorf("failed to close %s replica: %v", r.Role, err)
			}
		}
	}

	return NewReplicaSetFrom(primary, secondary), cleanup, nil
}

func openReplica(role model.ReplicaRole, rc *conf.Replica, pool *conf.Pool, gormLogger logger.Interface) (*Replica, error) {
	dialector, err := dialectorFor(rc)
	if err != nil {
		return nil, fmt.Errorf("%s replica: %w", role, err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s replica: %w", role, err)
	}

	r, err := NewReplica(role, rc, db)
	if err != nil {
		return nil, err
	}

	if pool != nil {
		r.sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
		r.sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
		r.sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
		r.sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	return r, nil
}

func dialectorFor(rc *conf.Replica) (gorm.Dialector, error) {
	switch rc.Driver {
	case "", "mysql":
		return mysql.New(mysql.Config{
			DSN:                       rc.Source,
			SkipInitializeWithVersion: true,
		}), nil
	case "postgres":
		return postgres.New(postgres.Config{
			DSN:        rc.Source,
			DriverName: "postgres",
		}), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", rc.Driver)
	}
}

// gormLogAdapter adapts Kratos log.Helper to GORM logger interface.
type gormLogAdapter struct {
	helper *log.Helper
}

// Printf implements gorm/logger.Writer interface.
func (g *gormLogAdapter) Printf(format string, v ...interface{}) {
	g.helper.Warnf(format, v...)
}
