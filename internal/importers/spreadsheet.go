package importers

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/xuri/excelize/v2"

	"github.com/mrlokans/librarian/internal/entities"
)

var (
	ErrUnsupportedFile = errors.New("only Excel files are supported")
	ErrSheetNotFound   = errors.New("no accepted sheet found in workbook")
	ErrInvalidRow      = errors.New("invalid row")
)

// supportedContentTypes are the MIME types of Excel workbooks.
var supportedContentTypes = map[string]bool{
	"application/vnd.ms-excel":                                             true,
	"application/vnd.ms-excel.sheet.macroEnabled.12":                       true,
	"application/vnd.ms-excel.sheet.binary.macroEnabled.12":                true,
	"application/vnd.ms-excel.template.macroEnabled.12":                    true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":    true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.template": true,
}

var supportedExtensions = []string{".xlsx", ".xlsm", ".xltx", ".xltm"}

// IsSpreadsheet reports whether an upload looks like an Excel workbook,
// by content type or, for generic types, by file extension.
func IsSpreadsheet(filename, contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	if supportedContentTypes[strings.TrimSpace(mediaType)] {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return slices.Contains(supportedExtensions, ext) &&
		(mediaType == "" || mediaType == "application/octet-stream")
}

// Record is one spreadsheet row keyed by snake_case header. Blank cells are nil.
type Record map[string]any

// Sheet is the worksheet picked from a workbook.
type Sheet struct {
	Name    string
	Records []Record
}

// SpreadsheetReader extracts rows from the first accepted worksheet.
type SpreadsheetReader struct {
	sheetNames []string
}

// NewSpreadsheetReader creates a reader accepting the given sheet names.
// When several are present the one appearing first in the workbook wins.
func NewSpreadsheetReader(sheetNames []string) *SpreadsheetReader {
	return &SpreadsheetReader{sheetNames: sheetNames}
}

// Open reads the workbook at path.
func (r *SpreadsheetReader) Open(path string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
	}
	defer f.Close()
	return r.read(f)
}

// Read reads a workbook from an upload stream.
func (r *SpreadsheetReader) Read(src io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
	}
	defer f.Close()
	return r.read(f)
}

func (r *SpreadsheetReader) read(f *excelize.File) (*Sheet, error) {
	name, ok := r.pickSheet(f.GetSheetList())
	if !ok {
		return nil, fmt.Errorf("%w: want one of %v", ErrSheetNotFound, r.sheetNames)
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	sheet := &Sheet{Name: name}
	if len(rows) == 0 {
		return sheet, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = SnakeCase(h)
	}

	for _, row := range rows[1:] {
		rec := make(Record, len(headers))
		blank := true
		for i, h := range headers {
			if h == "" {
				continue
			}
			var cell string
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			if cell == "" {
				rec[h] = nil
				continue
			}
			rec[h] = cell
			blank = false
		}
		if !blank {
			sheet.Records = append(sheet.Records, rec)
		}
	}
	return sheet, nil
}

// pickSheet returns the first workbook sheet that is in the accepted list.
func (r *SpreadsheetReader) pickSheet(available []string) (string, bool) {
	for _, name := range available {
		if slices.Contains(r.sheetNames, name) {
			return name, true
		}
	}
	return "", false
}

// SnakeCase lowercases a header and replaces spaces, dashes and dots with
// underscores.
func SnakeCase(header string) string {
	return strings.NewReplacer(" ", "_", "-", "_", ".", "_").
		Replace(strings.ToLower(strings.TrimSpace(header)))
}

// DecodeBooks turns records into unsaved books. Rows without a name or with
// a value of the wrong type are rejected with their 1-based data row number.
func DecodeBooks(records []Record) ([]*entities.Book, error) {
	books := make([]*entities.Book, 0, len(records))
	for i, rec := range records {
		book := &entities.Book{}
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           book,
			WeaklyTypedInput: true,
			TagName:          "mapstructure",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create decoder: %w", err)
		}
		if err := decoder.Decode(map[string]any(rec)); err != nil {
			return nil, fmt.Errorf("%w %d: %v", ErrInvalidRow, i+1, err)
		}
		if err := validateBook(book); err != nil {
			return nil, fmt.Errorf("%w %d: %v", ErrInvalidRow, i+1, err)
		}
		books = append(books, book)
	}
	return books, nil
}

func validateBook(b *entities.Book) error {
	b.Name = strings.TrimSpace(b.Name)
	switch {
	case b.Name == "":
		return errors.New("name is required")
	case len(b.Name) > 100:
		return errors.New("name must be at most 100 characters")
	case len(b.Author) > 100:
		return errors.New("author must be at most 100 characters")
	case b.Price < 0:
		return errors.New("price must not be negative")
	}
	return nil
}
