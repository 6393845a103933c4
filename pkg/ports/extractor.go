package ports

import (
	"context"

	"github.com/aretw0/synthex/pkg/domain"
)

// ActionExtractor converts free-form procedure text into an ordered list of actions.
// It is the only outbound call of the system.
type ActionExtractor interface {
	// ExtractActions sends req.Paragraph unmodified to the extraction service.
	// The returned list preserves the service order.
	ExtractActions(ctx context.Context, req domain.ExtractionRequest) (domain.ActionList, error)
}

// ExtractorFunc adapts a plain function to ActionExtractor.
type ExtractorFunc func(ctx context.Context, req domain.ExtractionRequest) (domain.ActionList, error)

// ExtractActions calls f.
func (f ExtractorFunc) ExtractActions(ctx context.Context, req domain.ExtractionRequest) (domain.ActionList, error) {
	return f(ctx, req)
}
