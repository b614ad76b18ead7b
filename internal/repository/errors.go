// Package repository declares the storage contract shared by the SQL and
// JSON-file backends. Rules in the service layer depend only on these
// interfaces; the sentinels below let them tell failure modes apart.
package repository

import "errors"

// ErrNotFound is returned by Get-style lookups and by Update/Delete when
// the keyed record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would break a uniqueness
// constraint: a duplicate email, passport or mobile, a second
// participation for the same (marathon, user) pair, or a positive entry
// number already held in the marathon. It is also returned when a delete
// is refused because dependent records still reference the row.
var ErrConflict = errors.New("conflict")

// ErrMissingReference is returned when an insert points at a marathon or
// user that does not exist.
var ErrMissingReference = errors.New("referenced record does not exist")
