// Package providers defines the metadata provider boundary: given a
// username, a provider returns the account's item list for filtering.
// Providers register themselves at startup and are looked up by id.
package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/tokscribe/tokscribe/internal/models"
)

// Errors every provider maps its transport failures onto.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrRateLimited     = errors.New("rate limited by provider")
)

// Provider fetches account metadata from an external content source.
type Provider interface {
	Info() models.ProviderInfo
	FetchMetadata(ctx context.Context, username string) (*models.AccountMetadata, error)
}

var registry = make(map[string]Provider)

// Register adds a provider to the registry. It is called at startup; a
// duplicate id is a developer error, so it panics.
func Register(p Provider) {
	info := p.Info()
	if _, exists := registry[info.ID]; exists {
		panic(fmt.Sprintf("provider with ID '%s' is already registered", info.ID))
	}
	registry[info.ID] = p
}

// Get returns a provider by its ID.
func Get(id string) (Provider, bool) {
	p, ok := registry[id]
	return p, ok
}

// GetAll returns information for all registered providers.
func GetAll() []models.ProviderInfo {
	var infos []models.ProviderInfo
	for _, p := range registry {
		infos = append(infos, p.Info())
	}
	return infos
}
