package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/hsh7097/MoneyTalk-sub002/internal/service"
	"github.com/stretchr/testify/require"
)

var errFake = errors.New("fake failure")

// fakeEmbedder maps templates to vectors. Unknown templates get unitX.
type fakeEmbedder struct {
	vectorFor func(template string) []float32
	err       error
	calls     atomic.Int32
	embedded  atomic.Int32
}

var unitX = []float32{1, 0, 0}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, templates []string) ([][]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	f.embedded.Add(int32(len(templates)))
	out := make([][]float32, len(templates))
	for i, t := range templates {
		if f.vectorFor != nil {
			out[i] = f.vectorFor(t)
		} else {
			out[i] = unitX
		}
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-embedding" }

// fakeExtractor answers extraction and regex requests from callbacks.
type fakeExtractor struct {
	extract      func(body string) (*model.ExtractionResult, error)
	regex        func(bodies []string) (*model.RegexTriple, error)
	extractCalls atomic.Int32
	regexCalls   atomic.Int32
}

func (f *fakeExtractor) ExtractBatch(_ context.Context, bodies []string, _ []int64) ([]*model.ExtractionResult, error) {
	f.extractCalls.Add(1)
	out := make([]*model.ExtractionResult, len(bodies))
	for i, body := range bodies {
		if f.extract == nil {
			return nil, errFake
		}
		res, err := f.extract(body)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

func (f *fakeExtractor) GenerateRegexForGroup(_ context.Context, bodies []string, _ []int64) (*model.RegexTriple, error) {
	f.regexCalls.Add(1)
	if f.regex == nil {
		return nil, errFake
	}
	return f.regex(bodies)
}

// memoryStore is an in-process PatternStore.
type memoryStore struct {
	patterns   []model.Pattern
	insertErr  error
	readErr    error
	increments map[int64]int
	mu         sync.Mutex
}

func newMemoryStore(seed ...model.Pattern) *memoryStore {
	s := &memoryStore{increments: make(map[int64]int)}
	for _, p := range seed {
		_, _ = s.Insert(context.Background(), &p)
	}
	return s
}

func (s *memoryStore) list(payment bool) ([]model.Pattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	var out []model.Pattern
	for _, p := range s.patterns {
		if p.IsPayment == payment {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memoryStore) GetAllPaymentPatterns(context.Context) ([]model.Pattern, error) {
	return s.list(true)
}

func (s *memoryStore) GetAllNonPaymentPatterns(context.Context) ([]model.Pattern, error) {
	return s.list(false)
}

func (s *memoryStore) Insert(_ context.Context, p *model.Pattern) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	stored := *p
	stored.ID = int64(len(s.patterns) + 1)
	s.patterns = append(s.patterns, stored)
	return stored.ID, nil
}

func (s *memoryStore) IncrementMatchCount(_ context.Context, id int64, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.increments[id]++
	return nil
}

func (s *memoryStore) all() []model.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Pattern(nil), s.patterns...)
}

func (s *memoryStore) incrementsFor(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.increments[id]
}

// fakeTelemetry records uploaded samples. The first failures uploads return
// an error and are not recorded.
type fakeTelemetry struct {
	samples  []service.TelemetrySample
	failures int
	attempts int
	mu       sync.Mutex
}

func (f *fakeTelemetry) Upload(_ context.Context, sample service.TelemetrySample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return errors.New("collector unavailable")
	}
	f.samples = append(f.samples, sample)
	return nil
}

func (f *fakeTelemetry) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.samples)
}

// fakeClock is a settable time source.
type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestPipeline(t *testing.T, deps Dependencies) *Pipeline {
	t.Helper()
	if deps.Store == nil {
		deps.Store = newMemoryStore()
	}
	if deps.Embedder == nil {
		deps.Embedder = &fakeEmbedder{}
	}
	if deps.Extractor == nil {
		deps.Extractor = &fakeExtractor{}
	}
	p, err := NewPipeline(deps, DefaultOptions())
	require.NoError(t, err)
	return p
}

// kbMessage renders a KB card approval notification.
func kbMessage(id int, amount int, store string) model.Message {
	return model.Message{
		ID:              fmt.Sprintf("msg-%d", id),
		SenderAddress:   "1588-1688",
		Body:            fmt.Sprintf("[Web발신]\nKB국민카드1234승인\n홍*동님\n%s원 일시불\n01/15 14:30\n%s\n누적1,234,567원", withCommas(amount), store),
		TimestampMillis: time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC).UnixMilli(),
	}
}

func withCommas(n int) string {
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func paymentAnswer(amount int, store string) func(string) (*model.ExtractionResult, error) {
	return func(string) (*model.ExtractionResult, error) {
		return &model.ExtractionResult{
			IsPayment: true,
			Amount:    amount,
			StoreName: store,
			CardName:  "KB국민카드",
			Category:  "카페",
			DateTime:  "2024-01-15 14:30",
		}, nil
	}
}

func kbRegex([]string) (*model.RegexTriple, error) {
	return &model.RegexTriple{
		AmountRegex: `([\d,]+)원 일시불`,
		StoreRegex:  `\d{2}:\d{2}\n(.+)`,
		CardRegex:   `(KB국민카드)`,
	}, nil
}
