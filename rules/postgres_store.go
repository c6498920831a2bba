package rules

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// PostgresRuleStore implements RuleStore backed by PostgreSQL. Threshold and
// legal-basis payloads are stored as JSONB; thresholds are decoded per logic
// type on read, and a payload that fails to decode leaves the rule with a nil
// threshold so it evaluates as a no-op instead of poisoning the catalog.
type PostgresRuleStore struct {
	db *sql.DB
}

// NewPostgresRuleStore creates a PostgreSQL-backed rule store.
func NewPostgresRuleStore(db *sql.DB) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

const ruleColumns = `id, jurisdiction_code, category, logic_type, threshold, severity, error_message, legal_basis, active, created_at, updated_at`

// Add inserts a new rule.
func (s *PostgresRuleStore) Add(ctx context.Context, rule *Rule) error {
	threshold, err := EncodeThreshold(rule.Threshold)
	if err != nil {
		return err
	}
	legalBasis, err := encodeLegalBasis(rule.LegalBasis)
	if err != nil {
		return err
	}

	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rule.ID, rule.JurisdictionCode, rule.Category, rule.LogicType,
		nullableJSON(threshold), rule.Severity, rule.ErrorMessage,
		nullableJSON(legalBasis), rule.Active, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert rule %s: %w", rule.ID, err)
	}
	return nil
}

// Get retrieves a rule by ID.
func (s *PostgresRuleStore) Get(ctx context.Context, id string) (*Rule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM rules
		WHERE id = $1
	`, id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rule %s: %w", id, err)
	}
	return rule, nil
}

// Update replaces an existing rule, preserving CreatedAt.
func (s *PostgresRuleStore) Update(ctx context.Context, rule *Rule) error {
	threshold, err := EncodeThreshold(rule.Threshold)
	if err != nil {
		return err
	}
	legalBasis, err := encodeLegalBasis(rule.LegalBasis)
	if err != nil {
		return err
	}

	rule.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx, `
		UPDATE rules
		SET jurisdiction_code = $1, category = $2, logic_type = $3, threshold = $4,
		    severity = $5, error_message = $6, legal_basis = $7, active = $8, updated_at = $9
		WHERE id = $10
	`, rule.JurisdictionCode, rule.Category, rule.LogicType, nullableJSON(threshold),
		rule.Severity, rule.ErrorMessage, nullableJSON(legalBasis), rule.Active,
		rule.UpdatedAt, rule.ID)
	if err != nil {
		return fmt.Errorf("update rule %s: %w", rule.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rule %s: %w", rule.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", rule.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a rule.
func (s *PostgresRuleStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns every rule in creation order.
func (s *PostgresRuleStore) List(ctx context.Context) ([]*Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM rules
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return out, nil
}

// FindActiveRules returns active rules for the jurisdiction plus the
// DEFAULT_GREEN fallbacks, in creation order.
func (s *PostgresRuleStore) FindActiveRules(ctx context.Context, jurisdictionCode string) ([]*Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM rules
		WHERE (jurisdiction_code = $1 OR jurisdiction_code = $2) AND active = true
		ORDER BY created_at ASC, id ASC
	`, jurisdictionCode, JurisdictionDefault)
	if err != nil {
		return nil, fmt.Errorf("list active rules for %s: %w", jurisdictionCode, err)
	}
	defer rows.Close()

	var matched []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		matched = append(matched, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return matched, nil
}

// FindOne returns the first active rule matching jurisdiction, category, and
// optionally severity; nil when none matches.
func (s *PostgresRuleStore) FindOne(ctx context.Context, jurisdictionCode string, category Category, severity Severity) (*Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		WHERE jurisdiction_code = $1 AND category = $2 AND active = true`
	args := []any{jurisdictionCode, category}
	if severity != SeverityAny {
		query += ` AND severity = $3`
		args = append(args, severity)
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, args...)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find rule for %s/%s: %w", jurisdictionCode, category, err)
	}
	return rule, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*Rule, error) {
	var rule Rule
	var threshold, legalBasis []byte

	err := row.Scan(
		&rule.ID,
		&rule.JurisdictionCode,
		&rule.Category,
		&rule.LogicType,
		&threshold,
		&rule.Severity,
		&rule.ErrorMessage,
		&legalBasis,
		&rule.Active,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Threshold, err = DecodeThreshold(rule.LogicType, threshold)
	if err != nil {
		// Fail open: the rule stays in the catalog but never fires.
		slog.Warn("rule threshold payload rejected, rule will not fire",
			"ruleId", rule.ID, "logicType", rule.LogicType, "error", err)
		rule.Threshold = nil
	}

	if len(legalBasis) > 0 {
		var lb LegalBasis
		if err := json.Unmarshal(legalBasis, &lb); err != nil {
			slog.Warn("rule legal basis payload rejected", "ruleId", rule.ID, "error", err)
		} else {
			rule.LegalBasis = &lb
		}
	}

	return &rule, nil
}

func encodeLegalBasis(lb *LegalBasis) ([]byte, error) {
	if lb == nil {
		return nil, nil
	}
	payload, err := json.Marshal(lb)
	if err != nil {
		return nil, fmt.Errorf("encode legal basis: %w", err)
	}
	return payload, nil
}

// nullableJSON maps an empty payload to SQL NULL so JSONB columns stay clean.
func nullableJSON(payload []byte) any {
	if len(payload) == 0 {
		return nil
	}
	return payload
}
