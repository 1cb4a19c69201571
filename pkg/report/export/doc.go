// Package export writes run records to JSON and CSV.
//
// JSON carries the complete record including the deviation list; CSV is a
// flattened per-run summary suitable for spreadsheets.
package export
