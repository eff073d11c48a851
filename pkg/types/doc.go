// Package types defines the Diary and table interfaces, the entity types,
// and the standard errors for the plant diaries storage system.
//
// Every read and write of plants, events, photos and tags is scoped by the
// id of the owning user. A row owned by someone else is reported exactly like
// a missing row (ErrNotFound).
package types
