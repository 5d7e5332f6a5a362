package importers

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeWorkbook saves a workbook whose sheets hold the given rows.
func writeWorkbook(t *testing.T, sheets map[string][][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), "books.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestSpreadsheetReader_Open(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"Books": {
			{"Name", "Price", "Author", "Extra-Column"},
			{"Dune", 9.99, "Frank Herbert", "x"},
			{"Solaris", nil, "", nil},
			{nil, nil, nil, nil},
			{"Neuromancer", "12", "William Gibson"},
		},
	})

	sheet, err := NewSpreadsheetReader([]string{"Books"}).Open(path)

	require.NoError(t, err)
	assert.Equal(t, "Books", sheet.Name)
	require.Len(t, sheet.Records, 3)
	assert.Equal(t, Record{"name": "Dune", "price": "9.99", "author": "Frank Herbert", "extra_column": "x"}, sheet.Records[0])
	assert.Equal(t, Record{"name": "Solaris", "price": nil, "author": nil, "extra_column": nil}, sheet.Records[1])
	assert.Nil(t, sheet.Records[2]["extra_column"])
}

func TestSpreadsheetReader_PicksFirstAcceptedSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Notes"))
	for _, name := range []string{"Catalogue", "Books"} {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(name, "A1", &[]any{"Name"}))
		require.NoError(t, f.SetSheetRow(name, "A2", &[]any{name + " row"}))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	sheet, err := NewSpreadsheetReader([]string{"Books", "Catalogue"}).Read(&buf)

	require.NoError(t, err)
	assert.Equal(t, "Catalogue", sheet.Name)
	assert.Equal(t, "Catalogue row", sheet.Records[0]["name"])
}

func TestSpreadsheetReader_SheetNotFound(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{"Other": {{"Name"}, {"Dune"}}})

	_, err := NewSpreadsheetReader([]string{"Books"}).Open(path)

	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestSpreadsheetReader_NotAWorkbook(t *testing.T) {
	_, err := NewSpreadsheetReader([]string{"Books"}).Read(bytes.NewBufferString("name,price\nDune,9.99\n"))

	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestSpreadsheetReader_EmptySheet(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{"Books": nil})

	sheet, err := NewSpreadsheetReader([]string{"Books"}).Open(path)

	require.NoError(t, err)
	assert.Empty(t, sheet.Records)
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Name":           "name",
		" Added By ":     "added_by",
		"Published-Year": "published_year",
		"Vol.No":         "vol_no",
		"":               "",
	}

	for in, want := range tests {
		assert.Equal(t, want, SnakeCase(in), in)
	}
}

func TestDecodeBooks(t *testing.T) {
	books, err := DecodeBooks([]Record{
		{"name": "Dune", "price": "9.99", "author": "Frank Herbert", "id": "77", "added_by": "5"},
		{"name": " Solaris ", "price": nil, "author": nil},
	})

	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Dune", books[0].Name)
	assert.Equal(t, 9.99, books[0].Price)
	assert.Equal(t, "Frank Herbert", books[0].Author)
	assert.Zero(t, books[0].ID, "identity is never taken from the sheet")
	assert.Zero(t, books[0].AddedBy, "owner is never taken from the sheet")
	assert.Equal(t, "Solaris", books[1].Name)
	assert.Zero(t, books[1].Price)
}

func TestDecodeBooks_InvalidRows(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"missing name", Record{"price": "1"}},
		{"bad price", Record{"name": "Dune", "price": "cheap"}},
		{"negative price", Record{"name": "Dune", "price": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBooks([]Record{{"name": "Fine"}, tt.rec})

			assert.ErrorIs(t, err, ErrInvalidRow)
			assert.Contains(t, err.Error(), "row 2")
		})
	}
}

func TestIsSpreadsheet(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        bool
	}{
		{"books.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", true},
		{"books.bin", "application/vnd.ms-excel", true},
		{"books.xlsx", "application/octet-stream", true},
		{"books.xlsx", "", true},
		{"books.csv", "text/csv", false},
		{"books.xlsx", "text/plain", false},
		{"books.txt", "application/octet-stream", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSpreadsheet(tt.filename, tt.contentType), "%s %s", tt.filename, tt.contentType)
	}
}
