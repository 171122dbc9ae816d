package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs-lzh/eventpro/internal/model"
)

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(DriverSQLite, "file:opentest?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	for _, table := range []any{&model.User{}, &model.Event{}, &model.Reservation{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
	assert.Equal(t, "UTC", db.NowFunc().Location().String())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	assert.ErrorContains(t, err, "unsupported database driver")
}

type recordingWriter struct {
	lines []string
}

func (w *recordingWriter) Printf(format string, args ...any) {
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func TestLogger_IgnoresRecordNotFound(t *testing.T) {
	w := &recordingWriter{}
	l := newLogger(w)
	query := func() (string, int64) { return "SELECT 1", 0 }

	l.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	assert.Empty(t, w.lines)

	l.Trace(context.Background(), time.Now(), query, errors.New("connection refused"))
	require.Len(t, w.lines, 1)
	assert.Contains(t, w.lines[0], "connection refused")
}
