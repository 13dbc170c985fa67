// Package httpapi exposes the knowledge services over a JSON HTTP API
// rooted at /knowledge/v1. Ingestion responses are NDJSON progress streams.
package httpapi
