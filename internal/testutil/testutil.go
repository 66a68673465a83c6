package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"dispatch-service/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// SetupDB returns a migrated in-memory sqlite database. Each call gets its
// own named shared-cache database so parallel tests do not see each other's
// rows. MaxOpenConns is pinned to 1: sqlite serializes writers anyway, and a
// single connection keeps concurrent gorm calls from failing with SQLITE_BUSY
// instead of queueing.
func SetupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Link{},
		&models.Target{},
		&models.AccessLog{},
		&models.Alert{},
		&models.LinkTemplate{},
		&models.User{},
	))
	return db
}

// DeadRedis returns a client pointing at a closed port. Services treat redis
// as best-effort, so tests run against the database fallback paths.
func DeadRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:       "127.0.0.1:1",
		MaxRetries: -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

// Logger is a no-op logger for tests.
func Logger() *zap.Logger {
	return zap.NewNop()
}

// CreateLink persists a link with the given caps and returns it.
func CreateLink(t *testing.T, db *gorm.DB, linkID, bu string, totalCap int, backupURL string) *models.Link {
	t.Helper()
	link := &models.Link{
		LinkID:       linkID,
		BusinessUnit: bu,
		Network:      "mi",
		TotalCap:     totalCap,
		BackupURL:    backupURL,
		IsActive:     true,
	}
	require.NoError(t, db.Create(link).Error)
	return link
}

// CreateTarget persists a target under the link. Countries is stored as a
// JSON array; params maps as JSON objects.
func CreateTarget(t *testing.T, db *gorm.DB, link *models.Link, url string, weight, cap int, countries string) *models.Target {
	t.Helper()
	target := &models.Target{
		LinkID:    link.ID,
		URL:       url,
		Weight:    weight,
		Cap:       cap,
		Countries: countries,
		IsActive:  true,
	}
	require.NoError(t, db.Create(target).Error)
	return target
}
