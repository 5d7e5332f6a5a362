package config

const (
	// DefaultDatabaseURL is the default connection URL of the main database.
	DefaultDatabaseURL = "sqlite:///librarian.db"

	// DefaultTasksDatabasePath is the default path of the task queue database.
	DefaultTasksDatabasePath = "./tasks.db"
)

// DefaultSheetNames lists the worksheet names accepted by spreadsheet uploads.
var DefaultSheetNames = []string{"Books", "Sheet1"}
