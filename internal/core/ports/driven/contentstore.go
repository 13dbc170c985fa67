package driven

import (
	"context"
	"io"
)

// ContentStore persists the raw upload and the derived output of each
// document, keyed by document UID:
//
//	{uid}/input/{original file}
//	{uid}/output/output.md | {uid}/output/table.csv
type ContentStore interface {
	// SaveContent replaces everything stored for uid with the contents of
	// sourceDir. Existing content is purged first; trees are never merged.
	SaveContent(ctx context.Context, uid, sourceDir string) error

	// DeleteContent removes everything stored for uid.
	// Deleting an unknown uid is a no-op.
	DeleteContent(ctx context.Context, uid string) error

	// GetContent opens the first file under {uid}/input.
	// Returns domain.ErrNotFound if there is none.
	GetContent(ctx context.Context, uid string) (io.ReadCloser, error)

	// GetMarkdown returns output.md, or table.csv rendered as a markdown
	// table capped at domain.MarkdownTableRows rows.
	// Returns domain.ErrNotFound if neither exists.
	GetMarkdown(ctx context.Context, uid string) (string, error)

	// GetTable opens output/table.csv.
	// Returns domain.ErrNotFound if the document has no table.
	GetTable(ctx context.Context, uid string) (io.ReadCloser, error)
}
