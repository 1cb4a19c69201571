// Package actions loads observed action streams produced by an external
// action recognizer.
//
// The input is a JSON file containing either a bare array of actions or an
// object with an "actions" array. Both the canonical field names
// (timestamp, description, tools, safety_equipment, zone) and the legacy
// recognizer names (worker_action, tools_visible, location_zone) are
// accepted, so recordings from older recognizer builds keep loading.
//
// Absent detection fields stay absent: a missing "tools" key loads as a nil
// slice (the recognizer did not look), while an empty array loads as an
// empty slice (it looked and saw nothing). The compliance rules treat these
// differently, so the loader must not conflate them.
package actions
