// Package session provides session management for the Ludo engine.
//
// The session package implements:
//   - A registry of live games keyed by session ID
//   - The per-session state machine (join, leave, begin, roll)
//   - Whole-table persistence to a JSON file or a SQLite database
//   - Restart recovery and expiration of idle sessions
//
// Core Types:
//
// Manager is the registry. It owns the shared board rules and the Store and
// writes the complete session table after every committed mutation.
// Session is one forming or running game. Every operation on a session runs
// under that session's own lock, so games in different sessions never wait
// on each other.
//
// Session Lifecycle:
//
// A session is created empty, collects players while forming, begins with
// at least two players and ends when a player wins, the last player leaves
// or it is ended explicitly. An ended session is removed from the registry
// and from the next persisted table.
//
// Persistence:
//
// Stores save and load the whole table. FileStore writes a single JSON
// document through a temp file and rename, so readers never observe a
// partial file. SQLiteStore keeps one row per session and replaces the
// table in a transaction. A failed flush is retried with backoff; a flush
// that still fails is reported as ErrPersistence while the in-memory state
// stays authoritative.
//
// Usage:
//
//	store, err := session.NewFileStore("ludo_games.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(engine.DefaultRules(), store, logger)
//	if _, err := manager.LoadPersistedSessions(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := manager.Create(ctx, "table-1")
//	if err != nil {
//		log.Fatal(err)
//	}
//	sess.Join(ctx, engine.Player{ID: 1, Name: "Alice"})
//	sess.Join(ctx, engine.Player{ID: 2, Name: "Bob"})
//	sess.Begin(ctx)
//	result, err := sess.Roll(ctx, 1, 6)
package session
