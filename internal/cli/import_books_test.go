package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/importers"
	"github.com/mrlokans/librarian/internal/services"
)

type fakeImporter struct {
	batch       *services.Batch
	validateErr error
	stored      []*services.Batch
}

func (f *fakeImporter) Validate(context.Context, string, string) (*services.Batch, error) {
	return f.batch, f.validateErr
}

func (f *fakeImporter) Store(_ context.Context, batch *services.Batch) error {
	f.stored = append(f.stored, batch)
	return nil
}

func TestImportBooksCommand_ParseFlags(t *testing.T) {
	cmd := NewImportBooksCommand()

	err := cmd.ParseFlags([]string{"-file", "books.xlsx", "-email", " Ada@Example.com ", "-dry-run"})

	require.NoError(t, err)
	assert.Equal(t, "books.xlsx", cmd.FilePath)
	assert.Equal(t, "ada@example.com", cmd.Email)
	assert.True(t, cmd.DryRun)
}

func TestImportBooksCommand_ParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"-email", "ada@example.com"}},
		{"missing email", []string{"-file", "books.xlsx"}},
		{"not a workbook", []string{"-file", "books.csv", "-email", "ada@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewImportBooksCommand().ParseFlags(tt.args))
		})
	}
}

func writeFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "books.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestImportBooksCommand_Run(t *testing.T) {
	batch := &services.Batch{Sheet: "Books", UserID: 1, Books: []*entities.Book{{Name: "Dune", Price: 9.99}}}
	importer := &fakeImporter{batch: batch}
	var out bytes.Buffer
	cmd := &ImportBooksCommand{FilePath: writeFile(t), Email: "ada@example.com", Verbose: true, Out: &out}

	require.NoError(t, cmd.Run(context.Background(), importer))

	assert.Equal(t, []*services.Batch{batch}, importer.stored)
	assert.Contains(t, out.String(), `"Dune" by (no author)`)
	assert.Contains(t, out.String(), "Imported 1 books")
}

func TestImportBooksCommand_Run_DryRun(t *testing.T) {
	importer := &fakeImporter{batch: &services.Batch{Sheet: "Books"}}
	cmd := &ImportBooksCommand{FilePath: writeFile(t), Email: "ada@example.com", DryRun: true, Out: &bytes.Buffer{}}

	require.NoError(t, cmd.Run(context.Background(), importer))

	assert.Empty(t, importer.stored)
}

func TestImportBooksCommand_Run_Errors(t *testing.T) {
	cmd := &ImportBooksCommand{FilePath: filepath.Join(t.TempDir(), "missing.xlsx"), Email: "a@x.com", Out: &bytes.Buffer{}}
	assert.Error(t, cmd.Run(context.Background(), &fakeImporter{}))

	importer := &fakeImporter{validateErr: importers.ErrSheetNotFound}
	cmd = &ImportBooksCommand{FilePath: writeFile(t), Email: "a@x.com", Out: &bytes.Buffer{}}
	err := cmd.Run(context.Background(), importer)
	assert.True(t, errors.Is(err, importers.ErrSheetNotFound))
	assert.Empty(t, importer.stored)
}
