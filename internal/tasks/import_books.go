package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/services"
)

// ImportBooksQueue is the queue name of ImportBooksTask.
const ImportBooksQueue = "import_books"

// ImportBooksTask stores the books of an uploaded spreadsheet for the user
// with Email. The file is validated before the task is enqueued.
type ImportBooksTask struct {
	Path  string `json:"path"`
	Email string `json:"email"`
}

// Config returns the queue configuration for spreadsheet imports.
func (t ImportBooksTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        ImportBooksQueue,
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// Importer imports a spreadsheet file for a user.
type Importer interface {
	Import(ctx context.Context, path, email string) (services.ImportResult, error)
}

// ImportBooksProcessor creates a processor function for ImportBooksTask.
// Only connectivity failures are returned to backlite for a retry; a file
// that no longer validates is logged and dropped.
func ImportBooksProcessor(importer Importer, log *zap.Logger) backlite.QueueProcessor[ImportBooksTask] {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, task ImportBooksTask) error {
		if importer == nil {
			return fmt.Errorf("importer not configured")
		}

		result, err := importer.Import(ctx, task.Path, task.Email)
		if err != nil {
			if database.IsRetryable(err) {
				return fmt.Errorf("import %s: %w", task.Path, err)
			}
			log.Error("import rejected",
				zap.String("path", task.Path),
				zap.String("email", task.Email),
				zap.Error(err),
			)
			return nil
		}

		log.Info("import finished",
			zap.String("path", task.Path),
			zap.String("sheet", result.Sheet),
			zap.Int("books", result.BooksProcessed),
		)
		return nil
	}
}

// NewImportBooksQueue creates a backlite queue for spreadsheet imports.
func NewImportBooksQueue(importer Importer, log *zap.Logger) backlite.Queue {
	return backlite.NewQueue(ImportBooksProcessor(importer, log))
}
