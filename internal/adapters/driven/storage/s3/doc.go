// Package s3 provides object-storage adapters for any S3-compatible
// service, including MinIO.
//
// Objects use the same layout as the local adapters, with the document UID
// or collection ID as the first key segment:
//
//	{document_uid}/input/{original file}
//	{document_uid}/output/{output.md|table.csv}
//	{id}/{descriptor}.json
//	{id}/files/{document_id}.md
package s3
