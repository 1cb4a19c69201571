// Package retention enforces retention policies on stored run records.
// A Pruner deletes records past a configured age or beyond a maximum
// count, optionally archiving them to JSON first, and a Scheduler runs
// the pruner on a cron schedule.
package retention
