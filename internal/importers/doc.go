// Package importers reads books out of uploaded spreadsheets.
//
// # Flow
//
//	.xlsx → SpreadsheetReader → []Record → DecodeBooks → []*entities.Book
//
// The reader picks the first worksheet whose name is in the accepted list,
// normalises headers to snake_case and turns blank cells into nil. Rows are
// decoded into entities with weak typing, so "9.99" becomes a float price.
//
// # Example Usage
//
//	reader := importers.NewSpreadsheetReader([]string{"Books", "Sheet1"})
//	sheet, err := reader.Open("catalogue.xlsx")
//	books, err := importers.DecodeBooks(sheet.Records)
package importers
