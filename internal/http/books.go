package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/cache"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/importers"
	"github.com/mrlokans/librarian/internal/tasks"
	"github.com/mrlokans/librarian/internal/utils"
)

// maxUploadSize caps spreadsheet uploads.
const maxUploadSize = 32 << 20

// BookInput is the add-book request body.
type BookInput struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Author string  `json:"author"`
}

type BooksController struct {
	users     UserGetter
	books     BookStore
	cache     *cache.Cache
	importer  BookImporter
	queue     TaskQueue
	sessions  *auth.SessionManager
	uploadDir string
}

func NewBooksController(cfg RouterConfig) *BooksController {
	return &BooksController{
		users:     cfg.Users,
		books:     cfg.Books,
		cache:     cfg.Cache,
		importer:  cfg.Importer,
		queue:     cfg.TaskQueue,
		sessions:  cfg.SessionManager,
		uploadDir: cfg.UploadDir,
	}
}

// AddBook stores a book owned by the user named in the added_by query.
func (bc *BooksController) AddBook(c *gin.Context) {
	email, ok := requireQuery(c, "added_by")
	if !ok {
		return
	}

	var in BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		respondBadRequest(c, "name is required")
		return
	case len(in.Name) > 100 || len(in.Author) > 100:
		respondBadRequest(c, "name and author must be at most 100 characters")
		return
	case in.Price < 0:
		respondBadRequest(c, "price must not be negative")
		return
	}

	ctx := c.Request.Context()
	s := sessionFrom(c)
	user, err := bc.users.GetByEmail(ctx, s, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		respondServiceError(c, err, "add book")
		return
	}

	book, err := bc.books.Add(ctx, s, &entities.Book{Name: in.Name, Price: in.Price, Author: in.Author}, user.ID)
	if err != nil {
		respondServiceError(c, err, "add book")
		return
	}
	respondCreated(c, book)
}

// GetBook returns a book by name, from the cache when possible.
func (bc *BooksController) GetBook(c *gin.Context) {
	name, ok := requireQuery(c, "book_name")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var cached entities.Book
	if bc.cache.Get(ctx, cache.BookKey(name), &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	book, err := bc.books.GetByName(ctx, sessionFrom(c), name)
	if err != nil {
		respondServiceError(c, err, "get book")
		return
	}
	_ = bc.cache.Set(ctx, cache.BookKey(name), book)
	c.JSON(http.StatusOK, book)
}

// GetUserBooks lists the books added by the user with the email query.
func (bc *BooksController) GetUserBooks(c *gin.Context) {
	email, ok := requireQuery(c, "email")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	s := sessionFrom(c)

	user, err := bc.users.GetByEmail(ctx, s, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		respondServiceError(c, err, "get user books")
		return
	}
	list, err := bc.books.ListByUser(ctx, s, user.ID)
	if err != nil {
		respondServiceError(c, err, "get user books")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Upload validates an Excel workbook of books and stores it in the
// background. The owner is the email query, or the signed-in user.
func (bc *BooksController) Upload(c *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if email == "" && bc.sessions != nil {
		email = bc.sessions.GetEmail(c.Request)
	}
	if email == "" {
		respondBadRequest(c, "email is required")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	header, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "file is required")
		return
	}
	if !importers.IsSpreadsheet(header.Filename, header.Header.Get("Content-Type")) {
		respondBadRequest(c, importers.ErrUnsupportedFile.Error())
		return
	}

	dir := filepath.Join(bc.uploadDir, "books")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		respondInternalError(c, err, "create upload directory")
		return
	}
	path := filepath.Join(dir, utils.StoredUploadName(header.Filename, time.Now()))
	if err := c.SaveUploadedFile(header, path); err != nil {
		respondInternalError(c, err, "save upload")
		return
	}

	ctx := c.Request.Context()
	batch, err := bc.importer.Validate(ctx, path, email)
	if err != nil {
		_ = os.Remove(path)
		respondServiceError(c, err, "validate upload")
		return
	}

	if bc.queue != nil {
		id, err := bc.queue.Enqueue(ctx, tasks.ImportBooksTask{Path: path, Email: email})
		if err != nil {
			respondInternalError(c, err, "enqueue import")
			return
		}
		loggerFrom(c).Info("import queued", zap.String("task_id", id), zap.String("path", path))
		respondAccepted(c, "Validation passed, books will be available shortly", gin.H{
			"task_id": id,
			"sheet":   batch.Sheet,
			"books":   len(batch.Books),
		})
		return
	}

	if err := bc.importer.Store(ctx, batch); err != nil {
		respondServiceError(c, err, "store upload")
		return
	}
	respondSuccess(c, "books imported", gin.H{"sheet": batch.Sheet, "books": len(batch.Books)})
}
