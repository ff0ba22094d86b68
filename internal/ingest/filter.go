package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tokscribe/tokscribe/internal/models"
)

// ValidateFilter rejects malformed filter configurations up front so they
// never reach the scheduler.
func ValidateFilter(f models.ItemFilter) error {
	if f.LastN < 0 {
		return fmt.Errorf("%w: last_n must not be negative", ErrInvalidInput)
	}
	if f.TopPercent < 0 || f.TopPercent > 100 {
		return fmt.Errorf("%w: top_percent must be in (0,100]", ErrInvalidInput)
	}
	if f.HistoryStart != nil && (*f.HistoryStart < 0 || *f.HistoryStart > 1) {
		return fmt.Errorf("%w: history_start must be in [0,1]", ErrInvalidInput)
	}
	if f.HistoryEnd != nil && (*f.HistoryEnd < 0 || *f.HistoryEnd > 1) {
		return fmt.Errorf("%w: history_end must be in [0,1]", ErrInvalidInput)
	}
	if f.HistoryStart != nil && f.HistoryEnd != nil && *f.HistoryStart > *f.HistoryEnd {
		return fmt.Errorf("%w: history_start must not exceed history_end", ErrInvalidInput)
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return fmt.Errorf("%w: date_from must not be after date_to", ErrInvalidInput)
	}
	return nil
}

// ApplyFilter narrows an account's item list to the subset a job should
// process. Filters apply in a fixed order: category gate, history window,
// last-N, top-percent by views, date range, required tags, speech presence.
// The result keeps chronological (oldest first) discovery order.
func ApplyFilter(meta *models.AccountMetadata, f models.ItemFilter) []models.ItemMetadata {
	if len(meta.Items) == 0 {
		return nil
	}

	// Account-level gate: a category mismatch excludes every item.
	if f.RequiredCategory != "" && !strings.EqualFold(meta.Category, f.RequiredCategory) {
		return nil
	}

	filtered := append([]models.ItemMetadata(nil), meta.Items...)
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	if f.HistoryStart != nil || f.HistoryEnd != nil {
		total := len(filtered)
		start, end := 0.0, 1.0
		if f.HistoryStart != nil {
			start = *f.HistoryStart
		}
		if f.HistoryEnd != nil {
			end = *f.HistoryEnd
		}
		filtered = filtered[int(start*float64(total)):int(end*float64(total))]
	}

	if f.LastN > 0 && len(filtered) > f.LastN {
		filtered = filtered[len(filtered)-f.LastN:]
	}

	if f.TopPercent > 0 {
		byViews := append([]models.ItemMetadata(nil), filtered...)
		sort.SliceStable(byViews, func(i, j int) bool {
			return byViews[i].ViewCount > byViews[j].ViewCount
		})
		count := int(float64(len(byViews)) * f.TopPercent / 100)
		if count < 1 {
			count = 1
		}
		keep := make(map[string]bool, count)
		for _, it := range byViews[:count] {
			keep[it.ID] = true
		}
		filtered = filterItems(filtered, func(it models.ItemMetadata) bool {
			return keep[it.ID]
		})
	}

	if f.DateFrom != nil {
		filtered = filterItems(filtered, func(it models.ItemMetadata) bool {
			return !it.CreatedAt.Before(*f.DateFrom)
		})
	}
	if f.DateTo != nil {
		filtered = filterItems(filtered, func(it models.ItemMetadata) bool {
			return !it.CreatedAt.After(*f.DateTo)
		})
	}

	if len(f.RequiredTags) > 0 {
		required := make([]string, len(f.RequiredTags))
		for i, t := range f.RequiredTags {
			required[i] = strings.ToLower(t)
		}
		filtered = filterItems(filtered, func(it models.ItemMetadata) bool {
			for _, tag := range it.Tags {
				tag = strings.ToLower(tag)
				for _, want := range required {
					if tag == want {
						return true
					}
				}
			}
			return false
		})
	}

	if f.OnlyWithSpeech {
		filtered = filterItems(filtered, func(it models.ItemMetadata) bool {
			return it.HasSpeech
		})
	}

	return filtered
}

func filterItems(items []models.ItemMetadata, keep func(models.ItemMetadata) bool) []models.ItemMetadata {
	out := items[:0:0]
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
