package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantEngine Engine
		wantMode   Mode
		wantSource string
	}{
		{
			name:       "relative sqlite path",
			raw:        "sqlite:///data/app.db",
			wantEngine: EngineSQLite,
			wantMode:   ModeBlocking,
			wantSource: "data/app.db?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL",
		},
		{
			name:       "absolute sqlite path with async driver",
			raw:        "sqlite+async:////var/lib/app.db",
			wantEngine: EngineSQLite,
			wantMode:   ModeNonBlocking,
			wantSource: "/var/lib/app.db?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL",
		},
		{
			name:       "sqlite keeps explicit parameters",
			raw:        "sqlite3:///app.db?_journal_mode=DELETE",
			wantEngine: EngineSQLite,
			wantMode:   ModeBlocking,
			wantSource: "app.db?_busy_timeout=5000&_foreign_keys=on&_journal_mode=DELETE",
		},
		{
			name:       "sqlite in memory",
			raw:        "sqlite:///:memory:",
			wantEngine: EngineSQLite,
			wantMode:   ModeBlocking,
			wantSource: "file::memory:?cache=shared&_foreign_keys=on",
		},
		{
			name:       "postgres",
			raw:        "postgresql://app:secret@db:5432/library?sslmode=disable",
			wantEngine: EnginePostgres,
			wantMode:   ModeBlocking,
			wantSource: "postgres://app:secret@db:5432/library?sslmode=disable",
		},
		{
			name:       "postgres async",
			raw:        "postgres+async://app:secret@db/library",
			wantEngine: EnginePostgres,
			wantMode:   ModeNonBlocking,
			wantSource: "postgres://app:secret@db/library",
		},
		{
			name:       "scheme is case insensitive",
			raw:        "SQLite+ASYNC:///app.db",
			wantEngine: EngineSQLite,
			wantMode:   ModeNonBlocking,
			wantSource: "app.db?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseURL(tt.raw)

			require.NoError(t, err)
			assert.Equal(t, tt.wantEngine, u.Engine)
			assert.Equal(t, tt.wantMode, u.Mode)
			assert.Equal(t, tt.wantSource, u.Source)
		})
	}
}

func TestParseURL_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no scheme", "app.db"},
		{"unknown engine", "oracle://db/orcl"},
		{"unknown driver", "postgres+psycopg2://db/app"},
		{"sqlite without path", "sqlite://"},
		{"postgres without host", "postgres:///app"},
		{"mysql without host", "mysql:///app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.raw)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}

func TestParseURL_MySQL(t *testing.T) {
	u, err := ParseURL("mysql+async://app:secret@db:3306/library?charset=utf8mb4")

	require.NoError(t, err)
	assert.Equal(t, EngineMySQL, u.Engine)
	assert.Equal(t, ModeNonBlocking, u.Mode)
	assert.Contains(t, u.Source, "app:secret@tcp(db:3306)/library?")
	assert.Contains(t, u.Source, "parseTime=true")
	assert.Contains(t, u.Source, "charset=utf8mb4")
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "postgres://app:xxxxx@db/app", redact("postgres://app:hunter2@db/app"))
	assert.Equal(t, "sqlite:///app.db", redact("sqlite:///app.db"))
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "blocking", ModeBlocking.String())
	assert.Equal(t, "non-blocking", ModeNonBlocking.String())
	assert.Equal(t, "mode(7)", Mode(7).String())
}
