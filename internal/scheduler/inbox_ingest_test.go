package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/importers"
	"github.com/mrlokans/librarian/internal/services"
)

type fakeImporter struct {
	mu    sync.Mutex
	calls map[string]string
	errs  map[string]error
}

func (f *fakeImporter) Import(_ context.Context, path, email string) (services.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]string{}
	}
	f.calls[filepath.Base(path)] = email
	if err := f.errs[filepath.Base(path)]; err != nil {
		return services.ImportResult{}, err
	}
	return services.ImportResult{Sheet: "Books", BooksProcessed: 1}, nil
}

func touch(t *testing.T, parts ...string) {
	t.Helper()
	path := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestInboxScheduler_Scan(t *testing.T) {
	inbox := t.TempDir()
	touch(t, inbox, "ada@example.com", "good.xlsx")
	touch(t, inbox, "ada@example.com", "bad.xlsx")
	touch(t, inbox, "ada@example.com", "later.xlsx")
	touch(t, inbox, "ada@example.com", "notes.txt")
	touch(t, inbox, "bob@example.com", "books.xlsx")
	touch(t, inbox, "stray.xlsx")

	importer := &fakeImporter{errs: map[string]error{
		"bad.xlsx":   importers.ErrInvalidRow,
		"later.xlsx": &database.OpError{Op: "acquire", Kind: database.ErrConnectivity, Err: errors.New("refused")},
	}}
	s := NewInboxScheduler(inbox, "*/5 * * * *", importer, zap.NewNop())

	result, err := s.Scan(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ScanResult{Imported: 2, Rejected: 1, Deferred: 1}, result)
	assert.Equal(t, map[string]string{
		"good.xlsx":  "ada@example.com",
		"bad.xlsx":   "ada@example.com",
		"later.xlsx": "ada@example.com",
		"books.xlsx": "bob@example.com",
	}, importer.calls)

	assert.FileExists(t, filepath.Join(inbox, "ada@example.com", "processed", "good.xlsx"))
	assert.FileExists(t, filepath.Join(inbox, "ada@example.com", "failed", "bad.xlsx"))
	assert.FileExists(t, filepath.Join(inbox, "ada@example.com", "later.xlsx"))
	assert.FileExists(t, filepath.Join(inbox, "ada@example.com", "notes.txt"))
	assert.FileExists(t, filepath.Join(inbox, "bob@example.com", "processed", "books.xlsx"))
	assert.FileExists(t, filepath.Join(inbox, "stray.xlsx"))
	assert.NoFileExists(t, filepath.Join(inbox, "ada@example.com", "good.xlsx"))
}

func TestInboxScheduler_Scan_ProcessedFilesAreNotReimported(t *testing.T) {
	inbox := t.TempDir()
	touch(t, inbox, "ada@example.com", "good.xlsx")
	importer := &fakeImporter{}
	s := NewInboxScheduler(inbox, "*/5 * * * *", importer, zap.NewNop())

	_, err := s.Scan(context.Background())
	require.NoError(t, err)
	result, err := s.Scan(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ScanResult{}, result)
}

func TestInboxScheduler_Scan_MissingInbox(t *testing.T) {
	s := NewInboxScheduler(filepath.Join(t.TempDir(), "missing"), "*/5 * * * *", &fakeImporter{}, nil)

	result, err := s.Scan(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ScanResult{}, result)
}

func TestInboxScheduler_StartStop(t *testing.T) {
	s := NewInboxScheduler(t.TempDir(), "*/5 * * * *", &fakeImporter{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	require.NotNil(t, s.NextRunTime())
	assert.False(t, s.NextRunTime().IsZero())

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRunTime())
	s.Stop()
}

func TestInboxScheduler_StopsWithContext(t *testing.T) {
	s := NewInboxScheduler(t.TempDir(), "*/5 * * * *", &fakeImporter{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestInboxScheduler_InvalidSchedule(t *testing.T) {
	s := NewInboxScheduler(t.TempDir(), "every five minutes", &fakeImporter{}, zap.NewNop())

	err := s.Start(context.Background())

	assert.Error(t, err)
	assert.False(t, s.IsRunning())
}

func TestValidateCronSchedule(t *testing.T) {
	assert.NoError(t, ValidateCronSchedule("0 3 * * *"))
	assert.Error(t, ValidateCronSchedule("0 0 3 * * *"))
}
