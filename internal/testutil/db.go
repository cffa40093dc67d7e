// Package testutil builds sqlite-backed fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory database with the engine schema and the
// users table. A single connection serializes transactions the way row locks
// would on postgres.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name, dbSeq.Add(1))

	cfg := postgres.GormConfig()
	cfg.Logger = logger.Discard
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, postgres.AutoMigrate(db))
	require.NoError(t, db.AutoMigrate(&models.UserModel{}))
	return db
}

// User describes a row of the users table. An empty Sponsor means none.
type User struct {
	ID             string
	Sponsor        string
	IsIntermediary bool
}

func SeedUsers(t testing.TB, db *gorm.DB, users ...User) {
	t.Helper()
	for _, u := range users {
		row := models.UserModel{ID: u.ID, IsIntermediary: u.IsIntermediary}
		if u.Sponsor != "" {
			sponsor := u.Sponsor
			row.SponsorID = &sponsor
		}
		require.NoError(t, db.Create(&row).Error)
	}
}
