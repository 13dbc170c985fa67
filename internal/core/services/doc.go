// Package services implements the driving ports.
//
// IngestionService runs the two-stage pipeline: the input stage validates
// a file, derives its metadata and converts it to markdown or a table, and
// the output stage chunks, embeds and indexes the result. The remaining
// services read and manage what ingestion produced: metadata, converted
// content, vector search, tabular queries, collections and settings.
//
// Services depend only on domain types and driven ports.
package services
