// Package notify implements the change-callback registry.
//
// Registrations live in a fixed-size slot table and are addressed by
// generation-tagged handles. Dispatch scans the table in slot order and
// invokes every exact-key match and every wildcard. A callback that
// panics is recovered and logged; it never prevents the remaining
// callbacks from running.
package notify
