package tasks

import (
	"context"
	"path/filepath"
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
	calls chan ImportBooksTask
	err   error
}

func (f *fakeImporter) Import(_ context.Context, path, email string) (services.ImportResult, error) {
	f.calls <- ImportBooksTask{Path: path, Email: email}
	if f.err != nil {
		return services.ImportResult{}, f.err
	}
	return services.ImportResult{Sheet: "Books", BooksProcessed: 1}, nil
}

func TestImportBooksTaskConfig(t *testing.T) {
	cfg := ImportBooksTask{Path: "/tmp/books.xlsx", Email: "ada@example.com"}.Config()

	assert.Equal(t, "import_books", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

func TestImportBooksProcessor(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"success", nil, false},
		{"invalid file is dropped", importers.ErrInvalidRow, false},
		{"connectivity failure is retried", &database.OpError{Op: "acquire", Kind: database.ErrConnectivity, Err: context.DeadlineExceeded}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			importer := &fakeImporter{calls: make(chan ImportBooksTask, 1), err: tt.err}
			process := ImportBooksProcessor(importer, zap.NewNop())

			err := process(context.Background(), ImportBooksTask{Path: "books.xlsx", Email: "ada@example.com"})

			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, database.IsRetryable(err))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, ImportBooksTask{Path: "books.xlsx", Email: "ada@example.com"}, <-importer.calls)
		})
	}
}

func TestImportBooksProcessor_NoImporter(t *testing.T) {
	err := ImportBooksProcessor(nil, nil)(context.Background(), ImportBooksTask{})

	assert.Error(t, err)
}

func TestImportBooksQueue_RunsEnqueuedTask(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1
	client, err := NewClient(filepath.Join(t.TempDir(), "tasks.db"), cfg, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	importer := &fakeImporter{calls: make(chan ImportBooksTask, 1)}
	client.Register(NewImportBooksQueue(importer, zap.NewNop()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	_, err = client.Add(ImportBooksTask{Path: "inbox/books.xlsx", Email: "ada@example.com"}).Save()
	require.NoError(t, err)

	select {
	case task := <-importer.calls:
		assert.Equal(t, "inbox/books.xlsx", task.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("import task was not executed within timeout")
	}
}
