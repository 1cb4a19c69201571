// Package sop defines the in-memory model of a Standard Operating Procedure
// and its loader.
//
// A Procedure is an ordered list of steps, each carrying the tools, work
// zone, safety equipment, and expected duration for that step. Procedures
// are loaded once from a YAML or JSON definition file, validated up front,
// and treated as read-only for the remainder of a run. Any malformed or
// incomplete definition is rejected at load time with a ConfigError that
// lists every offending field.
package sop
