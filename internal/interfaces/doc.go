// Package interfaces collects the compile-time checks that tie the
// application's narrow interfaces to their implementations.
//
// Consumers declare the smallest interface they need next to the code that
// uses it, for example http.BookStore or tasks.Importer. This package is the
// one place that imports both sides and asserts they still match, so a
// renamed or re-signed method fails the build here rather than at wiring
// time in internal/entrypoint.
//
// # Interface Map
//
//   - http.SessionRunner, http.Pinger, services.SessionRunner: *database.Provider
//   - auth.UserRepository, http.UserGetter, services.UserFinder: *users.Repository
//   - http.BookStore, services.BookWriter: *books.Repository
//   - http.Authenticator: *auth.Service
//   - http.BookImporter, cli.BookImporter, tasks.Importer, scheduler.Importer: *services.ImportService
//   - http.TaskQueue: *tasks.Client
//
// # Adding a New Import Source
//
// A new ingestion path (for example a CSV reader) should produce a
// *services.Batch through the same Validate/Store pair so that the HTTP,
// CLI, queue and inbox paths keep sharing one set of rules:
//
//  1. Add the reader to internal/importers next to SpreadsheetReader.
//  2. Teach services.ImportService to pick it by file type.
//  3. Add the extension to importers.IsSpreadsheet or a sibling predicate.
//  4. Cover it in internal/services/import_service_test.go.
package interfaces
