package rules

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	models "github.com/glkeru/loyalty/rules/internal/models"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Количество срабатываний правила у клиента
func (p *LoyaltyDB) CountTriggers(ctx context.Context, customerID, ruleID string, since *time.Time) (int, error) {
	q := sq.Select("COUNT(*)").From("rule_triggers").
		Where(sq.Eq{"customer_id": customerID, "rule_id": ruleID})
	if since != nil {
		q = q.Where(sq.GtOrEq{"triggered_at": *since})
	}
	sql, args, err := q.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		p.sqlError("CountTriggers", err, sql, args)
		return 0, err
	}
	var count int
	if err := p.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		p.sqlError("CountTriggers", err, sql, args)
		return 0, err
	}
	return count, nil
}

func (p *LoyaltyDB) LastTriggeredAt(ctx context.Context, customerID, ruleID string) (*time.Time, error) {
	var last *time.Time
	row := p.pool.QueryRow(ctx,
		"SELECT MAX(triggered_at) FROM rule_triggers WHERE customer_id = $1 AND rule_id = $2",
		customerID, ruleID)
	if err := row.Scan(&last); err != nil {
		return nil, err
	}
	return last, nil
}

// Какие из правил срабатывали у клиента
func (p *LoyaltyDB) TriggeredRules(ctx context.Context, customerID string, ruleIDs []string, since *time.Time) ([]string, error) {
	if len(ruleIDs) == 0 {
		return nil, nil
	}
	q := sq.Select("DISTINCT rule_id").From("rule_triggers").
		Where(sq.Eq{"customer_id": customerID, "rule_id": ruleIDs})
	if since != nil {
		q = q.Where(sq.GtOrEq{"triggered_at": *since})
	}
	return p.queryStrings(ctx, "TriggeredRules", q)
}

// CreateTrigger - запись срабатывания. Для неповторяемых правил unique_key = customer|rule,
// конкурентная вставка второго срабатывания ничего не пишет и возвращает false.
// Отложенный выбор наград (OR) пишется в той же транзакции: срабатывания без выбора не бывает.
func (p *LoyaltyDB) CreateTrigger(ctx context.Context, trigger models.RuleTrigger, unique bool, choice *models.PendingAwardChoice) (inserted bool, err error) {
	snapshot, err := toJSON(trigger.ConditionSnapshot)
	if err != nil {
		return false, err
	}
	evalCtx, err := toJSON(trigger.EvaluationContext)
	if err != nil {
		return false, err
	}
	var uniqueKey any
	if unique {
		uniqueKey = trigger.CustomerID + "|" + trigger.RuleID
	}

	sql, args, err := sq.Insert("rule_triggers").
		Columns("id", "rule_id", "customer_id", "business_id", "enrollment_id",
			"condition_snapshot", "evaluation_context", "awards_given", "total_points",
			"pending_choice_id", "triggered_at", "unique_key").
		Values(trigger.ID, trigger.RuleID, trigger.CustomerID, trigger.BusinessID, trigger.EnrollmentID,
			snapshot, evalCtx, []byte("[]"), 0,
			nullText(trigger.PendingChoiceID), trigger.TriggeredAt, uniqueKey).
		Suffix("ON CONFLICT (unique_key) DO NOTHING").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		p.sqlError("CreateTrigger", err, sql, args)
		return false, err
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		p.logger.Error("Get connection error", zap.Error(err), zap.String("service", "CreateTrigger"))
		return false, err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		p.sqlError("CreateTrigger", err, sql, args)
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if choice != nil {
		sql, args, err = insertChoice(*choice)
		if err != nil {
			p.sqlError("CreateTrigger", err, sql, args)
			return false, err
		}
		if _, err = tx.Exec(ctx, sql, args...); err != nil {
			p.sqlError("CreateTrigger", err, sql, args)
			return false, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		p.logger.Error("Commit error", zap.Error(err), zap.String("service", "CreateTrigger"))
		return false, err
	}
	committed = true
	return true, nil
}

// Итог начисления по срабатыванию
func (p *LoyaltyDB) CompleteTrigger(ctx context.Context, trigger models.RuleTrigger) error {
	awards := trigger.AwardsGiven
	if awards == nil {
		awards = []models.AwardResult{}
	}
	given, err := toJSON(awards)
	if err != nil {
		return err
	}
	sql, args, err := sq.Update("rule_triggers").
		Set("awards_given", given).
		Set("total_points", trigger.TotalPoints).
		Set("reward_id", nullText(trigger.RewardID)).
		Set("pending_choice_id", nullText(trigger.PendingChoiceID)).
		Where(sq.Eq{"id": trigger.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		p.sqlError("CompleteTrigger", err, sql, args)
		return err
	}
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		p.sqlError("CompleteTrigger", err, sql, args)
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
