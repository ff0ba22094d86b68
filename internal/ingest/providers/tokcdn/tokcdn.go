// A metadata provider that scrapes the public web profile of an account.
// The page only exposes a subset of each item's metadata (id, title, view
// count, hashtags); fields the page does not carry are left at permissive
// defaults so filtering on them is a no-op.
package tokcdn

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tokscribe/tokscribe/internal/ingest/providers"
	"github.com/tokscribe/tokscribe/internal/models"
)

type TokcdnProvider struct {
	client  *http.Client
	baseURL string
}

func New() *TokcdnProvider {
	return &TokcdnProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://www.tiktok.com",
	}
}

// NewWithBaseURL is used by tests to point the scraper at a local server.
func NewWithBaseURL(baseURL string) *TokcdnProvider {
	p := New()
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

func (p *TokcdnProvider) Info() models.ProviderInfo {
	return models.ProviderInfo{
		ID:   "tokcdn",
		Name: "TokCDN",
	}
}

func (p *TokcdnProvider) FetchMetadata(ctx context.Context, username string) (*models.AccountMetadata, error) {
	profileURL := fmt.Sprintf("%s/@%s", p.baseURL, username)
	req, err := http.NewRequestWithContext(ctx, "GET", profileURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) tokscribe/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile page: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, providers.ErrAccountNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, providers.ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d fetching profile for %s", resp.StatusCode, username)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile page: %w", err)
	}

	meta := &models.AccountMetadata{
		Username: username,
		Category: strings.TrimSpace(doc.Find(`[data-e2e="user-category"]`).First().Text()),
	}

	doc.Find(`[data-e2e="user-post-item"]`).Each(func(i int, s *goquery.Selection) {
		link, exists := s.Find("a").First().Attr("href")
		if !exists {
			return
		}
		id := itemIDFromLink(link)
		if id == "" {
			return
		}
		title := strings.TrimSpace(s.Find("img").First().AttrOr("alt", ""))
		views := parseViewCount(s.Find(`strong[data-e2e="video-views"]`).First().Text())
		meta.Items = append(meta.Items, models.ItemMetadata{
			ID:        id,
			Title:     title,
			ViewCount: views,
			// Creation time is not on the grid page; posts are listed
			// newest first, so synthesize a descending order that keeps
			// history-window filtering meaningful.
			CreatedAt: time.Now().Add(-time.Duration(i) * time.Hour),
			HasSpeech: true,
			Tags:      hashtagsFromTitle(title),
		})
	})

	// The grid lists newest first; discovery order is oldest first.
	for i, j := 0, len(meta.Items)-1; i < j; i, j = i+1, j-1 {
		meta.Items[i], meta.Items[j] = meta.Items[j], meta.Items[i]
	}

	return meta, nil
}

// itemIDFromLink extracts the item id from links of the form
// /@user/video/7312345678901234567.
func itemIDFromLink(link string) string {
	parts := strings.Split(link, "/video/")
	if len(parts) < 2 {
		return ""
	}
	id := parts[1]
	if idx := strings.IndexAny(id, "?/"); idx >= 0 {
		id = id[:idx]
	}
	return id
}

// parseViewCount turns display counts like "1.2M", "36.5K" or "412" into
// absolute numbers. Unparseable input counts as zero views.
func parseViewCount(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	mult := float64(1)
	switch {
	case strings.HasSuffix(raw, "K"):
		mult, raw = 1e3, strings.TrimSuffix(raw, "K")
	case strings.HasSuffix(raw, "M"):
		mult, raw = 1e6, strings.TrimSuffix(raw, "M")
	case strings.HasSuffix(raw, "B"):
		mult, raw = 1e9, strings.TrimSuffix(raw, "B")
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int64(n * mult)
}

var hashtagRe = regexp.MustCompile(`#(\w+)`)

func hashtagsFromTitle(title string) []string {
	matches := hashtagRe.FindAllStringSubmatch(title, -1)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.ToLower(m[1]))
	}
	return tags
}
