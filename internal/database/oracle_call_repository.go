package database

import (
	"context"
	"database/sql"

	"log/slog"

	"github.com/townwire/townwire/internal/oracle"
)

// OracleCallRepository persists the oracle call audit trail. Writes happen
// on a detached goroutine so a slow insert never delays the pipeline.
type OracleCallRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewOracleCallRepository creates an oracle-call repository.
func NewOracleCallRepository(db *sql.DB, logger *slog.Logger) *OracleCallRepository {
	return &OracleCallRepository{db: db, logger: logger}
}

// Record stores one call record asynchronously.
func (r *OracleCallRepository) Record(ctx context.Context, rec oracle.CallRecord) {
	go func() {
		_, err := r.db.ExecContext(context.Background(), `
			INSERT INTO oracle_calls
				(stage, model, prompt_tokens, completion_tokens, total_tokens, latency_ms, status, error_message, cost_usd)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, rec.Stage, rec.Model, rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens,
			rec.LatencyMs, rec.Status, rec.ErrorMessage, rec.CostUSD)
		if err != nil {
			r.logger.Error("failed to record oracle call", "stage", rec.Stage, "error", err)
		}
	}()
}
