// Package docstore provides the document lookup used to revalidate cached
// metadata, backed by a SQL database through gorm.
//
// The store reads a single table holding each document's id and content
// checksums. SQLite (pure Go, via github.com/glebarez/sqlite) and PostgreSQL
// are supported.
//
//	db, err := docstore.Open(docstore.Config{Driver: "sqlite", DSN: "documents.db"}, logger)
//	store := docstore.New(db)
//	doc, err := store.GetDocument(ctx, 42)
package docstore
