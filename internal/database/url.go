package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Mode is the execution model of every session handed out by a Provider.
type Mode int

const (
	// ModeBlocking runs store operations on the calling goroutine.
	ModeBlocking Mode = iota
	// ModeNonBlocking runs store operations on a goroutine owned by the
	// session while the caller waits on a channel or its context.
	ModeNonBlocking
)

func (m Mode) String() string {
	switch m {
	case ModeBlocking:
		return "blocking"
	case ModeNonBlocking:
		return "non-blocking"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

type Engine string

const (
	EngineSQLite   Engine = "sqlite"
	EnginePostgres Engine = "postgres"
	EngineMySQL    Engine = "mysql"
)

// DriverAsync is the driver token selecting non-blocking sessions,
// e.g. "postgres+async://...".
const DriverAsync = "async"

var engineAliases = map[string]Engine{
	"sqlite":     EngineSQLite,
	"sqlite3":    EngineSQLite,
	"postgres":   EnginePostgres,
	"postgresql": EnginePostgres,
	"mysql":      EngineMySQL,
}

// sqliteDefaults are applied to file-backed sqlite sources unless set.
var sqliteDefaults = [][2]string{
	{"_foreign_keys", "on"},
	{"_journal_mode", "WAL"},
	{"_busy_timeout", "5000"},
}

// ConnectionURL is a parsed "<engine>[+<driver>]://<rest>" connection string.
type ConnectionURL struct {
	Engine Engine
	Mode   Mode
	// Source is the engine-native DSN handed to the gorm dialector.
	Source string
}

// ParseURL splits a connection string into engine, mode and native DSN.
func ParseURL(raw string) (ConnectionURL, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return ConnectionURL{}, fmt.Errorf("%w: missing scheme in %q", ErrInvalidURL, redact(raw))
	}

	name, driver, _ := strings.Cut(strings.ToLower(scheme), "+")
	engine, ok := engineAliases[name]
	if !ok {
		return ConnectionURL{}, fmt.Errorf("%w: unsupported engine %q", ErrInvalidURL, name)
	}

	mode := ModeBlocking
	switch driver {
	case "":
	case DriverAsync:
		mode = ModeNonBlocking
	default:
		return ConnectionURL{}, fmt.Errorf("%w: unsupported driver %q for %s", ErrInvalidURL, driver, engine)
	}

	var (
		source string
		err    error
	)
	switch engine {
	case EngineSQLite:
		source, err = sqliteSource(rest)
	case EnginePostgres:
		source, err = postgresSource(rest)
	case EngineMySQL:
		source, err = mysqlSource(rest)
	}
	if err != nil {
		return ConnectionURL{}, err
	}

	return ConnectionURL{Engine: engine, Mode: mode, Source: source}, nil
}

// dialector opens the gorm dialect for the parsed engine.
func (u ConnectionURL) dialector() gorm.Dialector {
	switch u.Engine {
	case EnginePostgres:
		return postgres.Open(u.Source)
	case EngineMySQL:
		return gormmysql.Open(u.Source)
	default:
		return sqlite.Open(u.Source)
	}
}

// sqliteSource follows the sqlite:///relative.db and sqlite:////abs.db forms.
func sqliteSource(rest string) (string, error) {
	path := strings.TrimPrefix(rest, "/")
	if path == "" {
		return "", fmt.Errorf("%w: sqlite url has no database path", ErrInvalidURL)
	}
	if strings.HasPrefix(path, ":memory:") {
		// A private in-memory database per pooled connection is never what
		// the caller wants; share one cache across the pool.
		return "file::memory:?cache=shared&_foreign_keys=on", nil
	}

	file, query, _ := strings.Cut(path, "?")
	values, err := url.ParseQuery(query)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	for _, kv := range sqliteDefaults {
		if values.Get(kv[0]) == "" {
			values.Set(kv[0], kv[1])
		}
	}
	return file + "?" + values.Encode(), nil
}

func postgresSource(rest string) (string, error) {
	u, err := url.Parse("postgres://" + rest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: postgres url has no host", ErrInvalidURL)
	}
	return u.String(), nil
}

func mysqlSource(rest string) (string, error) {
	u, err := url.Parse("mysql://" + rest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: mysql url has no host", ErrInvalidURL)
	}

	cfg := gomysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.User = u.User.Username()
	cfg.Passwd, _ = u.User.Password()
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if params := u.Query(); len(params) > 0 {
		cfg.Params = make(map[string]string, len(params))
		for k := range params {
			cfg.Params[k] = params.Get(k)
		}
	}
	return cfg.FormatDSN(), nil
}

// redact hides credentials before a URL ends up in an error or a log line.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
