package engine

import (
	"context"
	"testing"

	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/hsh7097/MoneyTalk-sub002/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySingle(t *testing.T) {
	ctx := context.Background()

	t.Run("cache hit increments match count once per call", func(t *testing.T) {
		db := testutil.SetupTestStore(t)
		id := db.MustInsert(testutil.NewPattern("KB국민카드{NUM}승인").
			WithRegex(`([\d,]+)원 일시불`, `\d{2}:\d{2}\n(.+)`, `(KB국민카드)`).
			WithFields(15000, "스타벅스강남점", "KB국민카드", "카페").
			Build())
		extractor := &fakeExtractor{}
		p := newTestPipeline(t, Dependencies{Store: db.Store, Extractor: extractor})

		msg := kbMessage(1, 6500, "스타벅스역삼점")
		first, err := p.ClassifySingle(ctx, msg)
		require.NoError(t, err)
		second, err := p.ClassifySingle(ctx, msg)
		require.NoError(t, err)

		require.NotNil(t, first)
		assert.Equal(t, first, second)
		assert.Equal(t, 6500, first.Amount)
		assert.Equal(t, "스타벅스역삼점", first.StoreName)
		assert.Equal(t, "카페", first.Category)
		assert.Equal(t, model.SourceCache, first.Source)
		assert.Equal(t, id, first.PatternID)
		assert.Equal(t, 3, db.MustGet(id).MatchCount)
		assert.Equal(t, 1, db.Counts().Payment)
		assert.Zero(t, extractor.extractCalls.Load())
	})

	t.Run("filtered message", func(t *testing.T) {
		embedder := &fakeEmbedder{}
		p := newTestPipeline(t, Dependencies{Embedder: embedder})

		got, err := p.ClassifySingle(ctx, model.Message{Body: "[광고] 10,000원 할인 쿠폰 결제시 사용"})
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Zero(t, embedder.calls.Load())
	})

	t.Run("miss falls back to heuristics without the LLM", func(t *testing.T) {
		extractor := &fakeExtractor{extract: paymentAnswer(1, "x")}
		p := newTestPipeline(t, Dependencies{Extractor: extractor})

		got, err := p.ClassifySingle(ctx, kbMessage(1, 12000, "교보문고"))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 12000, got.Amount)
		assert.Equal(t, "교보문고", got.StoreName)
		assert.Equal(t, model.SourceHeuristic, got.Source)
		assert.InDelta(t, model.ConfidenceHeuristic, got.Confidence, 1e-9)
		assert.Zero(t, extractor.extractCalls.Load())
	})

	t.Run("embedding failure falls back to heuristics", func(t *testing.T) {
		p := newTestPipeline(t, Dependencies{Embedder: &fakeEmbedder{err: errFake}})

		got, err := p.ClassifySingle(ctx, kbMessage(1, 12000, "교보문고"))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, model.SourceHeuristic, got.Source)
	})

	t.Run("learned non-payment pattern rejects", func(t *testing.T) {
		store := newMemoryStore(*testutil.NewPattern("KB국민카드 안내").NonPayment().Build())
		p := newTestPipeline(t, Dependencies{Store: store})

		got, err := p.ClassifySingle(ctx, kbMessage(1, 12000, "교보문고"))
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, 1, store.incrementsFor(1))
	})

	t.Run("canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		p := newTestPipeline(t, Dependencies{Embedder: &fakeEmbedder{err: context.Canceled}})

		_, err := p.ClassifySingle(canceled, kbMessage(1, 12000, "교보문고"))
		require.ErrorIs(t, err, context.Canceled)
	})
}
