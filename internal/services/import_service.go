package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/importers"
)

// ErrEmptyImport is returned for a sheet with a header row and no data.
var ErrEmptyImport = errors.New("spreadsheet has no book rows")

// Batch is a validated spreadsheet ready to be stored.
type Batch struct {
	Sheet  string
	UserID uint
	Books  []*entities.Book
}

// ImportService turns spreadsheets into stored books. Validation reads the
// file and resolves the owner without writing; Store saves a batch
// atomically.
type ImportService struct {
	db     SessionRunner
	users  UserFinder
	books  BookWriter
	reader *importers.SpreadsheetReader
	log    *zap.Logger
}

// NewImportService creates a new ImportService.
func NewImportService(db SessionRunner, users UserFinder, books BookWriter, reader *importers.SpreadsheetReader, log *zap.Logger) *ImportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImportService{db: db, users: users, books: books, reader: reader, log: log.Named("import")}
}

// Validate reads the workbook at path and checks that email belongs to a
// registered user. Nothing is written.
func (s *ImportService) Validate(ctx context.Context, path, email string) (*Batch, error) {
	sheet, err := s.reader.Open(path)
	if err != nil {
		return nil, err
	}
	parsed, err := importers.DecodeBooks(sheet.Records)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("%w: sheet %s", ErrEmptyImport, sheet.Name)
	}

	batch := &Batch{Sheet: sheet.Name, Books: parsed}
	err = s.db.WithSession(ctx, func(session database.Session) error {
		user, err := s.users.GetByEmail(ctx, session, email)
		if err != nil {
			return err
		}
		batch.UserID = user.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// Store saves every book of batch in one transaction. A name already taken
// by any stored book rejects the whole batch with books.ErrBookExists.
func (s *ImportService) Store(ctx context.Context, batch *Batch) error {
	err := s.db.WithSession(ctx, func(session database.Session) error {
		return s.books.AddMany(ctx, session, batch.Books, batch.UserID)
	})
	if err != nil {
		if database.IsWriteRejected(err) {
			return fmt.Errorf("%w: %v", books.ErrBookExists, err)
		}
		return err
	}
	s.log.Info("books imported",
		zap.String("sheet", batch.Sheet),
		zap.Uint("user_id", batch.UserID),
		zap.Int("count", len(batch.Books)),
	)
	return nil
}

// Import validates and stores the workbook at path for the user with email.
func (s *ImportService) Import(ctx context.Context, path, email string) (ImportResult, error) {
	batch, err := s.Validate(ctx, path, email)
	if err != nil {
		return ImportResult{}, err
	}
	if err := s.Store(ctx, batch); err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Sheet: batch.Sheet, BooksProcessed: len(batch.Books)}, nil
}
