package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mrlokans/librarian/internal/importers"
	"github.com/mrlokans/librarian/internal/services"
)

// BookImporter validates and stores a spreadsheet for a user.
type BookImporter interface {
	Validate(ctx context.Context, path, email string) (*services.Batch, error)
	Store(ctx context.Context, batch *services.Batch) error
}

// ImportBooksCommand imports books from an Excel workbook for a registered
// user, the same way an upload does but without the task queue.
type ImportBooksCommand struct {
	FilePath string
	Email    string
	DryRun   bool
	Verbose  bool

	Out io.Writer
}

func NewImportBooksCommand() *ImportBooksCommand {
	return &ImportBooksCommand{Out: os.Stdout}
}

func (cmd *ImportBooksCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-books", flag.ContinueOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to the Excel workbook (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email of the user the books are added by (required)")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Validate the workbook without storing anything")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "List every book found")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s import-books -file <path> -email <email> [options]\n\n", os.Args[0])
		fmt.Fprintf(fs.Output(), "Import books from an Excel workbook. The first sheet whose name is\n")
		fmt.Fprintf(fs.Output(), "listed in INGEST_SHEET_NAMES is read; its header row names the columns\n")
		fmt.Fprintf(fs.Output(), "(name, price, author).\n\n")
		fmt.Fprintf(fs.Output(), "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	switch {
	case cmd.FilePath == "":
		return fmt.Errorf("required flag -file not provided")
	case cmd.Email == "":
		return fmt.Errorf("required flag -email not provided")
	case !importers.IsSpreadsheet(cmd.FilePath, ""):
		return importers.ErrUnsupportedFile
	}
	return nil
}

func (cmd *ImportBooksCommand) Run(ctx context.Context, importer BookImporter) error {
	if _, err := os.Stat(cmd.FilePath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file not found: %s", cmd.FilePath)
	}

	fmt.Fprintf(cmd.Out, "Reading %s\n", cmd.FilePath)
	batch, err := importer.Validate(ctx, cmd.FilePath, cmd.Email)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Out, "Sheet %q: %d books for %s\n", batch.Sheet, len(batch.Books), cmd.Email)

	if cmd.Verbose {
		for i, b := range batch.Books {
			author := b.Author
			if author == "" {
				author = "(no author)"
			}
			fmt.Fprintf(cmd.Out, "%d. %q by %s, %.2f\n", i+1, b.Name, author, b.Price)
		}
	}

	if cmd.DryRun {
		fmt.Fprintln(cmd.Out, "Dry run, nothing stored")
		return nil
	}

	if err := importer.Store(ctx, batch); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Out, "Imported %d books\n", len(batch.Books))
	return nil
}
