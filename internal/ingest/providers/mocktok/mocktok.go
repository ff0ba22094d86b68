// A mock metadata provider for development and testing. It fabricates a
// deterministic item list per username without making network calls.
package mocktok

import (
	"context"
	"fmt"
	"time"

	"github.com/tokscribe/tokscribe/internal/ingest/providers"
	"github.com/tokscribe/tokscribe/internal/models"
)

// Reserved usernames that trigger provider error paths.
const (
	MissingUser     = "missing"
	RateLimitedUser = "ratelimited"
)

type MocktokProvider struct {
	// ItemsPerAccount controls how many items each account reports.
	ItemsPerAccount int
	// Category is reported for every account; useful for category filters.
	Category string
}

func New() *MocktokProvider {
	return &MocktokProvider{ItemsPerAccount: 10, Category: "education"}
}

func (p *MocktokProvider) Info() models.ProviderInfo {
	return models.ProviderInfo{
		ID:   "mocktok",
		Name: "Mocktok",
	}
}

func (p *MocktokProvider) FetchMetadata(ctx context.Context, username string) (*models.AccountMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch username {
	case MissingUser:
		return nil, providers.ErrAccountNotFound
	case RateLimitedUser:
		return nil, providers.ErrRateLimited
	}

	base := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	items := make([]models.ItemMetadata, 0, p.ItemsPerAccount)
	for i := 1; i <= p.ItemsPerAccount; i++ {
		items = append(items, models.ItemMetadata{
			ID:              fmt.Sprintf("%s-vid-%03d", username, i),
			Title:           fmt.Sprintf("%s video %d", username, i),
			DurationSeconds: float64(30 + 15*i),
			CreatedAt:       base.AddDate(0, 0, i),
			ViewCount:       int64(1000 * i),
			HasSpeech:       i%4 != 0, // every fourth item is speechless
			Tags:            []string{"mock", fmt.Sprintf("topic-%d", i%3)},
		})
	}
	return &models.AccountMetadata{
		Username: username,
		Category: p.Category,
		Items:    items,
	}, nil
}
