// Package storage defines persistence interfaces and record types for the
// scaffold service.
//
// Implementations return sentinel errors for expected conditions:
//   - ErrNotFound: requested record is missing
//   - ErrConcurrencyConflict: journal append lost an optimistic concurrency race
package storage
