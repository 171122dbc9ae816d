// Package dbtest opens throwaway databases for tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/qs-lzh/eventpro/internal/database"
)

var counter uint64

// Open returns a migrated in-memory SQLite database private to t. Every
// connection in the pool shares the same named memory database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	id := atomic.AddUint64(&counter, 1)
	dsn := fmt.Sprintf("file:eventprotest%d?mode=memory&cache=shared&_foreign_keys=on", id)
	db, err := database.Open(database.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("dbtest: open %s: %v", dsn, err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}
