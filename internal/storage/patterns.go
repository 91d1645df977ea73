package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/common"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/hsh7097/MoneyTalk-sub002/internal/service"
	"github.com/hsh7097/MoneyTalk-sub002/internal/similarity"
)

// Compile-time interface check
var _ service.PatternStore = (*SQLiteStorage)(nil)

const patternColumns = `
	id, template, sender_address, embedding, is_payment,
	parsed_amount, parsed_store, parsed_card, parsed_category,
	amount_regex, store_regex, card_regex, parse_source,
	confidence, match_count, created_at, last_matched_at`

// GetAllPaymentPatterns returns every payment pattern in insertion order.
func (s *SQLiteStorage) GetAllPaymentPatterns(ctx context.Context) ([]model.Pattern, error) {
	return s.listPatterns(ctx, true)
}

// GetAllNonPaymentPatterns returns every non-payment pattern in insertion order.
func (s *SQLiteStorage) GetAllNonPaymentPatterns(ctx context.Context) ([]model.Pattern, error) {
	return s.listPatterns(ctx, false)
}

func (s *SQLiteStorage) listPatterns(ctx context.Context, isPayment bool) ([]model.Pattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + patternColumns + ` FROM sms_patterns WHERE is_payment = ? ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query, isPayment)
	if err != nil {
		return nil, common.StorageError("query patterns", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, common.StorageError("scan pattern", err)
		}
		patterns = append(patterns, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StorageError("iterate patterns", err)
	}
	return patterns, nil
}

// GetPattern retrieves a single pattern by ID.
func (s *SQLiteStorage) GetPattern(ctx context.Context, id int64) (*model.Pattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + patternColumns + ` FROM sms_patterns WHERE id = ?`
	p, err := scanPattern(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrPatternNotFound, id)
		}
		return nil, common.StorageError("get pattern", err)
	}
	return p, nil
}

// Insert stores a new pattern and returns its ID. Missing timestamps default to
// now and a zero match count defaults to 1.
func (s *SQLiteStorage) Insert(ctx context.Context, p *model.Pattern) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validatePattern(p); err != nil {
		return 0, err
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.LastMatchedAt.IsZero() {
		p.LastMatchedAt = p.CreatedAt
	}
	if p.MatchCount <= 0 {
		p.MatchCount = 1
	}

	query := `
		INSERT INTO sms_patterns (
			template, sender_address, embedding, is_payment,
			parsed_amount, parsed_store, parsed_card, parsed_category,
			amount_regex, store_regex, card_regex, parse_source,
			confidence, match_count, created_at, last_matched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		p.Template, p.SenderAddress, similarity.PackEmbedding(p.Embedding), p.IsPayment,
		p.ParsedAmount, p.ParsedStore, p.ParsedCard, p.ParsedCategory,
		p.AmountRegex, p.StoreRegex, p.CardRegex, string(p.ParseSource),
		p.Confidence, p.MatchCount, p.CreatedAt.UnixMilli(), p.LastMatchedAt.UnixMilli(),
	)
	if err != nil {
		return 0, common.StorageError("insert pattern", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, common.StorageError("get pattern ID", err)
	}
	p.ID = id
	return id, nil
}

// IncrementMatchCount records a cache hit on the pattern.
func (s *SQLiteStorage) IncrementMatchCount(ctx context.Context, id int64, matchedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sms_patterns SET match_count = match_count + 1, last_matched_at = ? WHERE id = ?`,
		matchedAt.UnixMilli(), id)
	if err != nil {
		return common.StorageError("increment match count", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return common.StorageError("increment match count", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrPatternNotFound, id)
	}
	return nil
}

// DeleteStalePatterns removes patterns matched fewer than minMatchCount times
// whose last match is older than olderThan. It returns the number deleted.
func (s *SQLiteStorage) DeleteStalePatterns(ctx context.Context, minMatchCount int, olderThan time.Time) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sms_patterns WHERE match_count < ? AND last_matched_at < ?`,
		minMatchCount, olderThan.UnixMilli())
	if err != nil {
		return 0, common.StorageError("delete stale patterns", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, common.StorageError("delete stale patterns", err)
	}
	return n, nil
}

// PatternCounts is the number of stored patterns per kind.
type PatternCounts struct {
	Payment    int `json:"payment"`
	NonPayment int `json:"non_payment"`
}

// CountPatterns returns how many payment and non-payment patterns are stored.
func (s *SQLiteStorage) CountPatterns(ctx context.Context) (PatternCounts, error) {
	var counts PatternCounts
	if err := validateContext(ctx); err != nil {
		return counts, err
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN is_payment = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_payment = 0 THEN 1 ELSE 0 END), 0)
		FROM sms_patterns
	`).Scan(&counts.Payment, &counts.NonPayment)
	if err != nil {
		return counts, common.StorageError("count patterns", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPattern(row rowScanner) (*model.Pattern, error) {
	var (
		p           model.Pattern
		embedding   []byte
		source      string
		createdAt   int64
		lastMatched int64
	)
	err := row.Scan(
		&p.ID, &p.Template, &p.SenderAddress, &embedding, &p.IsPayment,
		&p.ParsedAmount, &p.ParsedStore, &p.ParsedCard, &p.ParsedCategory,
		&p.AmountRegex, &p.StoreRegex, &p.CardRegex, &source,
		&p.Confidence, &p.MatchCount, &createdAt, &lastMatched,
	)
	if err != nil {
		return nil, err
	}
	p.Embedding = similarity.UnpackEmbedding(embedding)
	p.ParseSource = model.ParseSource(source)
	p.CreatedAt = time.UnixMilli(createdAt)
	p.LastMatchedAt = time.UnixMilli(lastMatched)
	return &p, nil
}
