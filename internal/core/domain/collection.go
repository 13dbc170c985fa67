package domain

// CollectionKind selects one of the two named document collection surfaces.
// Both share storage layout and behaviour and differ only in their
// descriptor file name.
type CollectionKind string

// Available collection kinds.
const (
	// CollectionKnowledgeContext is a tag-scoped knowledge context.
	CollectionKnowledgeContext CollectionKind = "knowledge_context"

	// CollectionChatProfile is a chat profile.
	CollectionChatProfile CollectionKind = "chat_profile"
)

// CollectionFilesDir is the subdirectory holding per-document markdown.
const CollectionFilesDir = "files"

// DefaultMaxTokens bounds the total token count of one collection.
const DefaultMaxTokens = 50000

// IsValid returns true if the kind is recognised.
func (k CollectionKind) IsValid() bool {
	return k == CollectionKnowledgeContext || k == CollectionChatProfile
}

// DescriptorFile returns the JSON descriptor name for this kind.
func (k CollectionKind) DescriptorFile() string {
	if k == CollectionChatProfile {
		return "profile.json"
	}
	return "knowledge_context.json"
}

// String returns the string representation.
func (k CollectionKind) String() string {
	return string(k)
}

// Collection is a named group of converted documents.
type Collection struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Tag         string               `json:"tag,omitempty"`
	Creator     string               `json:"creator"`
	UserID      string               `json:"user_id"`
	CreatedAt   string               `json:"created_at"`
	UpdatedAt   string               `json:"updated_at"`
	Tokens      int                  `json:"tokens"`
	Documents   []CollectionDocument `json:"documents"`
}

// CollectionDocument describes one document of a collection. Its markdown
// lives in files/{ID}.md.
type CollectionDocument struct {
	ID           string `json:"id"`
	DocumentName string `json:"document_name"`
	DocumentType string `json:"document_type"`
	Size         int64  `json:"size"`
	Description  string `json:"description,omitempty"`
	Tokens       int    `json:"tokens"`
}

// FindDocument returns the index of the document with the given ID, or -1.
func (c *Collection) FindDocument(id string) int {
	for i := range c.Documents {
		if c.Documents[i].ID == id {
			return i
		}
	}
	return -1
}

// TotalTokens sums the token counts of all documents.
func (c *Collection) TotalTokens() int {
	total := 0
	for i := range c.Documents {
		total += c.Documents[i].Tokens
	}
	return total
}

// CollectionUpload is one file offered for inclusion in a collection.
type CollectionUpload struct {
	// Filename is the uploaded name; its stem becomes the document ID.
	Filename string

	// Path is the file's location on local disk.
	Path string
}

// CollectionContent is a collection with its documents' markdown joined.
type CollectionContent struct {
	Collection
	Content string `json:"content"`
}
