// Package store provides SQLite-backed durable storage for named key-value
// regions.
//
// Two region shapes are supported:
//   - String sets: an unordered set of opaque string records under a
//     (namespace, key) pair. The pending event queue lives here.
//   - Settings: a scalar string value under a (namespace, key) pair.
//
// The store does not coordinate writers. Read-modify-write sequences on a
// string set (read, add one member, write back) are only safe when a single
// goroutine owns the key; the queue package arranges that.
//
// Files open in WAL mode with synchronous=NORMAL and a 5s busy timeout.
// The schema is versioned with user_version; Open applies missing steps and
// refuses a database written by a newer binary.
package store
