package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/common"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndGetPattern(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	in := testPattern("KB국민카드 승인 {AMOUNT}", true)
	in.StoreRegex = `\d{2}:\d{2}\n(.+)`
	in.CardRegex = `(KB국민카드)`
	id, err := store.Insert(ctx, in)
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, id, in.ID)

	got, err := store.GetPattern(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, in.Template, got.Template)
	assert.Equal(t, in.SenderAddress, got.SenderAddress)
	assert.Equal(t, in.Embedding, got.Embedding)
	assert.True(t, got.IsPayment)
	assert.Equal(t, 15000, got.ParsedAmount)
	assert.Equal(t, in.Regexes(), got.Regexes())
	assert.Equal(t, model.SourceLLMRegex, got.ParseSource)
	assert.Equal(t, 1, got.MatchCount)
	assert.Equal(t, in.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
	assert.Equal(t, in.CreatedAt.UnixMilli(), got.LastMatchedAt.UnixMilli())
}

func TestInsert_Validation(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	tests := []struct {
		name    string
		mutate  func(p *model.Pattern)
		wantErr error
	}{
		{"empty template", func(p *model.Pattern) { p.Template = " " }, ErrInvalidPattern},
		{"no embedding", func(p *model.Pattern) { p.Embedding = nil }, ErrInvalidPattern},
		{"no source", func(p *model.Pattern) { p.ParseSource = "" }, ErrInvalidPattern},
		{"confidence above one", func(p *model.Pattern) { p.Confidence = 1.5 }, ErrInvalidPattern},
		{"negative amount", func(p *model.Pattern) { p.ParsedAmount = -1 }, ErrInvalidPattern},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPattern("승인 {AMOUNT}", true)
			tt.mutate(p)
			_, err := store.Insert(ctx, p)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := store.Insert(ctx, nil)
	assert.ErrorIs(t, err, ErrNilParameter)
}

func TestGetAllPatterns_SplitsByKind(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	for _, p := range []*model.Pattern{
		testPattern("payment one", true),
		testPattern("ad one", false),
		testPattern("payment two", true),
	} {
		_, err := store.Insert(ctx, p)
		require.NoError(t, err)
	}

	payments, err := store.GetAllPaymentPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "payment one", payments[0].Template)
	assert.Equal(t, "payment two", payments[1].Template)

	others, err := store.GetAllNonPaymentPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.False(t, others[0].IsPayment)

	counts, err := store.CountPatterns(ctx)
	require.NoError(t, err)
	assert.Equal(t, PatternCounts{Payment: 2, NonPayment: 1}, counts)
}

func TestIncrementMatchCount(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	id, err := store.Insert(ctx, testPattern("승인 {AMOUNT}", true))
	require.NoError(t, err)

	matched := time.UnixMilli(1710000000000)
	require.NoError(t, store.IncrementMatchCount(ctx, id, matched))
	require.NoError(t, store.IncrementMatchCount(ctx, id, matched.Add(time.Minute)))

	got, err := store.GetPattern(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MatchCount)
	assert.Equal(t, matched.Add(time.Minute).UnixMilli(), got.LastMatchedAt.UnixMilli())

	err = store.IncrementMatchCount(ctx, id+100, matched)
	assert.ErrorIs(t, err, ErrPatternNotFound)
}

func TestGetPattern_NotFound(t *testing.T) {
	store := createTestStorage(t)
	_, err := store.GetPattern(context.Background(), 42)
	assert.ErrorIs(t, err, ErrPatternNotFound)
	assert.False(t, errors.Is(err, common.ErrStorage))
}

func TestDeleteStalePatterns(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	now := time.Now()

	stale := testPattern("stale", true)
	stale.CreatedAt = now.Add(-90 * 24 * time.Hour)
	staleID, err := store.Insert(ctx, stale)
	require.NoError(t, err)

	popular := testPattern("popular but old", true)
	popular.CreatedAt = now.Add(-90 * 24 * time.Hour)
	popular.MatchCount = 10
	popularID, err := store.Insert(ctx, popular)
	require.NoError(t, err)

	recent := testPattern("recent", true)
	recent.CreatedAt = now
	recentID, err := store.Insert(ctx, recent)
	require.NoError(t, err)

	n, err := store.DeleteStalePatterns(ctx, 3, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.GetPattern(ctx, staleID)
	assert.ErrorIs(t, err, ErrPatternNotFound)
	_, err = store.GetPattern(ctx, popularID)
	assert.NoError(t, err)
	_, err = store.GetPattern(ctx, recentID)
	assert.NoError(t, err)
}
