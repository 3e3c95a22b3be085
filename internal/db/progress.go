package rules

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	models "github.com/glkeru/loyalty/rules/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const progressSelect = `SELECT id, ruleset_id, customer_id, business_id, status, completed_rule_ids, current_step,
	started_at, completed_at, expires_at, updated_at FROM ruleset_progress WHERE ruleset_id = $1 AND customer_id = $2`

func scanProgress(row pgx.Row) (*models.RulesetProgress, error) {
	p := &models.RulesetProgress{}
	err := row.Scan(&p.ID, &p.RulesetID, &p.CustomerID, &p.BusinessID, &p.Status, &p.CompletedRuleIDs, &p.CurrentStep,
		&p.StartedAt, &p.CompletedAt, &p.ExpiresAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.CompletedRuleIDs == nil {
		p.CompletedRuleIDs = []string{}
	}
	return p, nil
}

// GetProgress - nil, если клиент не начинал вояж
func (p *LoyaltyDB) GetProgress(ctx context.Context, rulesetID, customerID string) (*models.RulesetProgress, error) {
	progress, err := scanProgress(p.pool.QueryRow(ctx, progressSelect, rulesetID, customerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return progress, err
}

// UpdateProgress - изменение прогресса под блокировкой строки.
// fn получает текущее состояние (not_started для новой строки) и сообщает, нужно ли сохранить.
func (p *LoyaltyDB) UpdateProgress(ctx context.Context, rulesetID, customerID string, fn func(p *models.RulesetProgress) (bool, error)) (result *models.RulesetProgress, err error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		p.logger.Error("Get connection error", zap.Error(err), zap.String("service", "UpdateProgress"))
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback(ctx)
		}
	}()

	// строка создается в той же транзакции, чтобы FOR UPDATE было что блокировать
	_, err = tx.Exec(ctx, `INSERT INTO ruleset_progress (id, ruleset_id, customer_id, business_id, status, completed_rule_ids, current_step, updated_at)
		VALUES ($1, $2, $3, '', $4, '{}', 0, $5) ON CONFLICT (ruleset_id, customer_id) DO NOTHING`,
		uuid.NewString(), rulesetID, customerID, models.ProgressNotStarted, time.Now())
	if err != nil {
		p.logger.Error("Insert progress error", zap.Error(err), zap.String("service", "UpdateProgress"))
		return nil, err
	}

	progress, err := scanProgress(tx.QueryRow(ctx, progressSelect+" FOR UPDATE", rulesetID, customerID))
	if err != nil {
		p.logger.Error("Block progress error", zap.Error(err), zap.String("service", "UpdateProgress"))
		return nil, err
	}

	changed, err := fn(progress)
	if err != nil {
		return nil, err
	}
	// без изменений новая строка откатывается вместе с транзакцией
	if !changed {
		return progress, nil
	}

	sql, args, err := sq.Update("ruleset_progress").
		Set("business_id", progress.BusinessID).
		Set("status", progress.Status).
		Set("completed_rule_ids", progress.CompletedRuleIDs).
		Set("current_step", progress.CurrentStep).
		Set("started_at", progress.StartedAt).
		Set("completed_at", progress.CompletedAt).
		Set("expires_at", progress.ExpiresAt).
		Set("updated_at", progress.UpdatedAt).
		Where(sq.Eq{"id": progress.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		p.sqlError("UpdateProgress", err, sql, args)
		return nil, err
	}
	if _, err = tx.Exec(ctx, sql, args...); err != nil {
		p.sqlError("UpdateProgress", err, sql, args)
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		p.logger.Error("Commit error", zap.Error(err), zap.String("service", "UpdateProgress"))
		return nil, err
	}
	committed = true
	return progress, nil
}

// Просроченные вояжи в статус expired
func (p *LoyaltyDB) ExpireProgress(ctx context.Context, at time.Time) (int64, error) {
	sql, args, err := sq.Update("ruleset_progress").
		Set("status", models.ProgressExpired).
		Set("updated_at", at).
		Where(sq.Eq{"status": models.ProgressInProgress}).
		Where(sq.Lt{"expires_at": at}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		p.sqlError("ExpireProgress", err, sql, args)
		return 0, err
	}
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		p.sqlError("ExpireProgress", err, sql, args)
		return 0, err
	}
	return tag.RowsAffected(), nil
}
