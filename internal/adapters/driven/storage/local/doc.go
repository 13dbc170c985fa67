// Package local provides filesystem-backed storage adapters.
//
// Content, document metadata and collections live under directories
// chosen in configuration:
//
//	{content_root}/{document_uid}/input/{original file}
//	{content_root}/{document_uid}/output/{output.md|table.csv}
//	{metadata_path}                      (JSON array of records)
//	{collection_root}/{id}/{descriptor}.json
//	{collection_root}/{id}/files/{document_id}.md
package local
