// Package report turns engine results into durable run records and
// human-readable output.
//
// A RunRecord captures one complete analysis run: the procedure analyzed,
// the compliance summary, the full deviation list, and bookkeeping such as
// which provider and model produced the scores. Records are persisted
// through the Storage interface (see the storage subpackage for the SQLite
// and in-memory backends), exported via the export subpackage, and aged out
// by the retention subpackage.
//
// The package also renders the operator-facing text output: per-deviation
// alert blocks and the end-of-run summary report with its compliance grade.
package report
