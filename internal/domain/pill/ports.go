package pill

import (
	"context"
)

// CatalogListing is the parsed imprint catalog page: three sequences aligned
// by position.
type CatalogListing struct {
	Imprints     []string
	Names        []string
	Descriptions []map[string]string
}

// CatalogSource fetches and parses the catalog page for an imprint code.
type CatalogSource interface {
	Lookup(ctx context.Context, imprint string) (CatalogListing, error)
}

// LabelSource queries the regulatory label service by generic name and
// returns the raw response body. Zero results is an error.
type LabelSource interface {
	FetchLabel(ctx context.Context, genericName string) ([]byte, error)
}

// TextGenerator turns a system and user prompt into plain text.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// TextDetector extracts ordered LINE detections from an image.
type TextDetector interface {
	DetectLines(ctx context.Context, image []byte) ([]TextDetection, error)
}

// ImageStore persists uploaded pill photos and returns a retrievable URL.
type ImageStore interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// EventPublisher emits pipeline events. Delivery is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

//Personal.AI order the ending
