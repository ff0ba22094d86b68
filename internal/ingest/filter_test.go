package ingest

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokscribe/tokscribe/internal/models"
)

func metaWithItems(n int) *models.AccountMetadata {
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	meta := &models.AccountMetadata{Username: "a", Category: "education"}
	for i := 1; i <= n; i++ {
		meta.Items = append(meta.Items, models.ItemMetadata{
			ID:        fmt.Sprintf("v%02d", i),
			Title:     fmt.Sprintf("video %d", i),
			CreatedAt: base.AddDate(0, 0, i),
			ViewCount: int64(100 * i),
			HasSpeech: i%2 == 0,
			Tags:      []string{fmt.Sprintf("tag%d", i%3)},
		})
	}
	return meta
}

func ids(items []models.ItemMetadata) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestValidateFilter(t *testing.T) {
	bad := []models.ItemFilter{
		{LastN: -1},
		{TopPercent: 101},
		{HistoryStart: floatPtr(-0.1)},
		{HistoryEnd: floatPtr(1.5)},
		{HistoryStart: floatPtr(0.8), HistoryEnd: floatPtr(0.2)},
	}
	for i, f := range bad {
		err := ValidateFilter(f)
		assert.True(t, errors.Is(err, ErrInvalidInput), "case %d", i)
	}

	from := time.Now()
	to := from.Add(-time.Hour)
	err := ValidateFilter(models.ItemFilter{DateFrom: &from, DateTo: &to})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	assert.NoError(t, ValidateFilter(models.ItemFilter{}))
	assert.NoError(t, ValidateFilter(models.ItemFilter{LastN: 5, TopPercent: 50}))
}

func TestApplyFilter_ZeroValueKeepsEverything(t *testing.T) {
	meta := metaWithItems(10)
	filtered := ApplyFilter(meta, models.ItemFilter{})
	assert.Len(t, filtered, 10)
	// Discovery order is oldest first.
	assert.Equal(t, "v01", filtered[0].ID)
	assert.Equal(t, "v10", filtered[9].ID)
}

func TestApplyFilter_CategoryGate(t *testing.T) {
	meta := metaWithItems(5)
	assert.Empty(t, ApplyFilter(meta, models.ItemFilter{RequiredCategory: "cooking"}))
	assert.Len(t, ApplyFilter(meta, models.ItemFilter{RequiredCategory: "Education"}), 5)
}

func TestApplyFilter_HistoryWindow(t *testing.T) {
	meta := metaWithItems(10)
	// Middle 60% of the account's history.
	filtered := ApplyFilter(meta, models.ItemFilter{
		HistoryStart: floatPtr(0.2),
		HistoryEnd:   floatPtr(0.8),
	})
	assert.Equal(t, []string{"v03", "v04", "v05", "v06", "v07", "v08"}, ids(filtered))
}

func TestApplyFilter_LastN(t *testing.T) {
	meta := metaWithItems(10)
	filtered := ApplyFilter(meta, models.ItemFilter{LastN: 3})
	assert.Equal(t, []string{"v08", "v09", "v10"}, ids(filtered))
}

func TestApplyFilter_TopPercentByViews(t *testing.T) {
	meta := metaWithItems(10)
	filtered := ApplyFilter(meta, models.ItemFilter{TopPercent: 20})
	// v09 and v10 have the most views; chronological order is preserved.
	assert.Equal(t, []string{"v09", "v10"}, ids(filtered))

	// A tiny percentage still keeps at least one item.
	one := ApplyFilter(meta, models.ItemFilter{TopPercent: 1})
	assert.Len(t, one, 1)

	// Fractional percentages count in float math: 1.5% of 200 is 3.
	big := metaWithItems(200)
	three := ApplyFilter(big, models.ItemFilter{TopPercent: 1.5})
	assert.Equal(t, []string{"v198", "v199", "v200"}, ids(three))
}

func TestApplyFilter_DateRange(t *testing.T) {
	meta := metaWithItems(10)
	from := time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)
	filtered := ApplyFilter(meta, models.ItemFilter{DateFrom: &from, DateTo: &to})
	assert.Equal(t, []string{"v03", "v04", "v05", "v06"}, ids(filtered))
}

func TestApplyFilter_RequiredTags(t *testing.T) {
	meta := metaWithItems(9)
	filtered := ApplyFilter(meta, models.ItemFilter{RequiredTags: []string{"TAG1"}})
	// Tag matching is case-insensitive, any-of.
	assert.Equal(t, []string{"v01", "v04", "v07"}, ids(filtered))

	none := ApplyFilter(meta, models.ItemFilter{RequiredTags: []string{"missing"}})
	assert.Empty(t, none)
}

func TestApplyFilter_OnlyWithSpeech(t *testing.T) {
	meta := metaWithItems(10)
	filtered := ApplyFilter(meta, models.ItemFilter{OnlyWithSpeech: true})
	assert.Len(t, filtered, 5)
	for _, it := range filtered {
		assert.True(t, it.HasSpeech)
	}
}

func TestApplyFilter_EmptyInput(t *testing.T) {
	meta := &models.AccountMetadata{Username: "a"}
	assert.Empty(t, ApplyFilter(meta, models.ItemFilter{LastN: 5}))
}

func TestApplyFilter_DoesNotMutateInput(t *testing.T) {
	meta := metaWithItems(5)
	before := ids(meta.Items)
	_ = ApplyFilter(meta, models.ItemFilter{TopPercent: 40, LastN: 2})
	require.Equal(t, before, ids(meta.Items))
}

func floatPtr(f float64) *float64 { return &f }
