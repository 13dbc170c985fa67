// Package pgvector provides a vector index stored in PostgreSQL with the
// pgvector extension. Chunks of every named index share one table and are
// ranked by cosine distance on the server.
package pgvector
