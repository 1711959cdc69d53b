package driving

import (
	"context"

	"github.com/custodia-labs/vision/internal/core/domain"
)

// QueryService answers natural-language questions grounded in the
// querying tenant's indexed chunks.
type QueryService interface {
	// Answer embeds the query, retrieves the nearest chunks for the user,
	// and synthesises a citation-annotated answer. Zero retrieved chunks
	// still produce an answer (with no citations), never an error.
	Answer(ctx context.Context, userID, query string, opts domain.QueryOptions) (*domain.Answer, error)
}
