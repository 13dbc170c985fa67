package driven

import "context"

// ImageDescriber turns an image into descriptive text for inclusion in
// converted markdown.
//
// Implementations never fail: on any internal error (network, decode,
// quota, timeout) they return the fallback text so that one bad image
// cannot abort a whole document conversion.
type ImageDescriber interface {
	// Describe returns a description of the image. mimeType is the image
	// media type, for example "image/png".
	Describe(ctx context.Context, image []byte, mimeType string) string
}

// VisionModel is a remote multimodal model able to answer a prompt about
// one image. Unlike ImageDescriber it reports failures; the describer
// that wraps it turns them into the fallback text.
type VisionModel interface {
	// DescribeImage sends prompt and image to the model and returns its answer.
	DescribeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
