// Package database provides the data access layer for the application.
//
// # Architecture
//
// One Provider owns the connection pool. Every unit of work runs inside
// Provider.WithSession, which leases a single connection, opens a
// transaction on first use and releases both when the callback returns:
//
//	database/
//	├── provider.go      # Pool, schema setup, session leasing, shutdown
//	├── url.go           # "<engine>[+async]://" parsing, mode selection
//	├── store.go         # Store interface, blocking and non-blocking stores
//	├── session.go       # Session types and the non-blocking owner goroutine
//	├── unit_of_work.go  # Transaction handling shared by both modes
//	├── filter.go        # Attribute equality filters
//	├── errors.go        # Error kinds and driver error classification
//	├── books/           # Book repository
//	└── users/           # User repository
//
// # Session Modes
//
// The driver token of the connection URL selects the mode once, at startup:
//
//	sqlite:///data/app.db          blocking
//	sqlite+async:///data/app.db    non-blocking
//	postgres+async://u:p@db/app    non-blocking
//
// Blocking sessions run store operations on the calling goroutine.
// Non-blocking sessions run them on a goroutine that owns the connection
// while the caller waits on its context. Results, errors and commit
// boundaries are the same in both modes.
//
// # Usage
//
//	provider, err := database.NewProvider(ctx, cfg, log, entities.All()...)
//	store := provider.Store()
//
//	err = provider.WithSession(ctx, func(s database.Session) error {
//		book, err := database.FetchOne[entities.Book](ctx, store, s, database.Where("Name", "Dune"))
//		...
//	})
//
// Repositories in the sub-packages wrap the Store for one entity each and
// take the session as an argument, so several repositories can share a unit
// of work.
package database
