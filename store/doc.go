// Package store persists fetched plan pages and serialized API responses.
//
// Both tables are written through content-hash checked upserts, so repeating
// an identical write is a no-op.
package store
