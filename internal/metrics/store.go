package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"recipe-planner/internal/database"
	"recipe-planner/internal/shared"
)

const timestampLayout = "2006-01-02 15:04:05"

// ExecutionMetric records metadata for a single generator execution.
type ExecutionMetric struct {
	AgentName        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Timestamp        time.Time
}

// Store handles persistence of token usage to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *database.DB) *Store {
	return &Store{db: db.SQL}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_metrics (agent_name, model, prompt_tokens, completion_tokens, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.AgentName, m.Model, m.PromptTokens, m.CompletionTokens, m.LatencyMS, ts.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution metric: %w", err)
	}
	return nil
}

// RecordMeta records metrics directly from shared.AgentMeta. Executions that
// consumed no tokens are skipped.
func (s *Store) RecordMeta(ctx context.Context, meta shared.AgentMeta) error {
	if meta.Usage.PromptTokens == 0 && meta.Usage.CompletionTokens == 0 {
		return nil
	}
	return s.Record(ctx, MapUsage(meta.AgentName, meta.Usage, meta.Latency))
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string `json:"date"`
	TotalPrompt     int    `json:"totalPrompt"`
	TotalCompletion int    `json:"totalCompletion"`
	TotalExecution  int    `json:"totalExecution"`
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(timestampLayout)
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day,
		       COUNT(*),
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0)
		FROM execution_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.TotalExecution, &u.TotalPrompt, &u.TotalCompletion); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days and
// returns how many were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(timestampLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM execution_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up execution metrics: %w", err)
	}
	return res.RowsAffected()
}

// MapUsage helper to convert shared.TokenUsage to ExecutionMetric.
func MapUsage(agentName string, usage shared.TokenUsage, latency time.Duration) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        agentName,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}
}
