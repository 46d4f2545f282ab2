package data

import (
	"testing"

	"FailoverGuard/internal/conf"
	"FailoverGuard/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// newMockReplica builds a Replica backed by sqlmock with ping monitoring on.
func newMockReplica(t *testing.T, role model.ReplicaRole, id, region string) (*Replica, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	r, err := NewReplica(role, &conf.Replica{ID: id, Driver: "mysql", Region: region}, db)
	require.NoError(t, err)
	return r, mock
}
