// Package storage persists the quote collection and UI preferences.
//
// Three ports.KeyValueStore backends mirror a browser's storage APIs:
// FileStore keeps every key in one JSON document, SQLiteStore keeps them in
// a kv table, and MemoryStore holds session-scoped values that are lost on
// restart. QuoteRepository and Preferences sit on top of any of them.
package storage
