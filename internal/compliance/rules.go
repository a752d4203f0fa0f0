package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/timeguard/timeguard/internal/platform/cache"
)

// RuleLoader returns the active break rules.
type RuleLoader interface {
	ActiveRules(ctx context.Context) ([]BreakRule, error)
}

// RuleStore reads break rules from PostgreSQL.
type RuleStore struct {
	pool *pgxpool.Pool
}

// NewRuleStore constructs a rule store.
func NewRuleStore(pool *pgxpool.Pool) *RuleStore {
	return &RuleStore{pool: pool}
}

// ActiveRules loads the active rules ordered by descending work threshold.
func (s *RuleStore) ActiveRules(ctx context.Context) ([]BreakRule, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, min_work_minutes, min_break_minutes, warning_text, is_active
FROM break_rules
WHERE is_active
ORDER BY min_work_minutes DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("compliance: load break rules: %w", err)
	}
	defer rows.Close()

	var rules []BreakRule
	for rows.Next() {
		var (
			rule BreakRule
			text pgtype.Text
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.MinWorkMinutes, &rule.MinBreakMinutes, &text, &rule.Active); err != nil {
			return nil, fmt.Errorf("compliance: scan break rule: %w", err)
		}
		if text.Valid {
			rule.WarningText = text.String
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: load break rules: %w", err)
	}
	return rules, nil
}

type cachedRules struct {
	Rules    []BreakRule `json:"rules"`
	LoadedAt time.Time   `json:"loaded_at"`
}

// RuleSource serves RuleSet snapshots through a versioned cache. A snapshot
// stays in effect until Reload bumps the cache version.
type RuleSource struct {
	loader RuleLoader
	cache  *cache.Versioned
	logger *slog.Logger
	now    func() time.Time
}

// NewRuleSource constructs a rule source. A nil cache loads on every call.
func NewRuleSource(loader RuleLoader, c *cache.Versioned, logger *slog.Logger) *RuleSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleSource{
		loader: loader,
		cache:  c,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Snapshot returns the rule set currently in effect. When the cache is
// unreachable the rules are read straight from the loader.
func (s *RuleSource) Snapshot(ctx context.Context) (RuleSet, error) {
	key, err := s.cache.BuildKey(ctx, "break_rules", "active")
	if err != nil {
		return s.loadDirect(ctx, err)
	}
	var (
		cached    cachedRules
		loaderErr error
	)
	err = s.cache.FetchJSON(ctx, key, &cached, func(ctx context.Context) (any, error) {
		rules, err := s.loader.ActiveRules(ctx)
		if err != nil {
			loaderErr = err
			return nil, err
		}
		return cachedRules{Rules: rules, LoadedAt: s.now()}, nil
	})
	if loaderErr != nil {
		return RuleSet{}, fmt.Errorf("compliance: rules snapshot: %w", loaderErr)
	}
	if err != nil {
		return s.loadDirect(ctx, err)
	}
	return NewRuleSet(cached.Rules, cached.LoadedAt), nil
}

func (s *RuleSource) loadDirect(ctx context.Context, cause error) (RuleSet, error) {
	s.logger.Warn("rules cache unavailable", slog.Any("error", cause))
	rules, err := s.loader.ActiveRules(ctx)
	if err != nil {
		return RuleSet{}, fmt.Errorf("compliance: rules snapshot: %w", err)
	}
	return NewRuleSet(rules, s.now()), nil
}

// Reload invalidates the cached snapshot and returns a freshly loaded one.
func (s *RuleSource) Reload(ctx context.Context) (RuleSet, error) {
	version, err := s.cache.Bump(ctx)
	if err != nil {
		return RuleSet{}, fmt.Errorf("compliance: bump rules cache: %w", err)
	}
	set, err := s.Snapshot(ctx)
	if err != nil {
		return RuleSet{}, err
	}
	s.logger.Info("break rules reloaded", slog.Int64("version", version), slog.Int("rules", set.Len()))
	return set, nil
}
