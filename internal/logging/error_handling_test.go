package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingCloser struct{ err error }

func (f failingCloser) Close() error { return f.err }

type stubTx struct{ err error }

func (s stubTx) Rollback() error { return s.err }

func TestSafeCloseWithLogging(t *testing.T) {
	t.Run("logs close failures", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		SafeCloseWithLogging(failingCloser{err: errors.New("disk gone")}, logger, "close_feed_db")

		output := buf.String()
		assert.Contains(t, output, "failed to close resource")
		assert.Contains(t, output, `"operation":"close_feed_db"`)
		assert.Contains(t, output, "disk gone")
	})

	t.Run("silent on success and nil closer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		SafeCloseWithLogging(failingCloser{}, logger, "close_feed_db")
		SafeCloseWithLogging(nil, logger, "close_feed_db")

		assert.Empty(t, buf.String())
	})
}

func TestSafeRollbackWithLogging(t *testing.T) {
	t.Run("ignores already-finished transactions", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		SafeRollbackWithLogging(stubTx{err: errors.New("sql: transaction has already been committed or rolled back")}, logger, "bulk_insert")

		assert.Empty(t, buf.String())
	})

	t.Run("logs real rollback failures", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		SafeRollbackWithLogging(stubTx{err: errors.New("connection lost")}, logger, "bulk_insert")

		output := buf.String()
		assert.Contains(t, output, "failed to rollback transaction")
		assert.Contains(t, output, "connection lost")
	})
}
