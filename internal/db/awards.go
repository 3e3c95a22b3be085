package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	models "github.com/glkeru/loyalty/rules/internal/models"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v5"
)

// exec с проверкой, что строка найдена
func (p *LoyaltyDB) execOne(ctx context.Context, service string, b sq.Sqlizer, what string) error {
	sql, args, err := b.ToSql()
	if err != nil {
		p.sqlError(service, err, sql, args)
		return err
	}
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		p.sqlError(service, err, sql, args)
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %w", what, models.ErrNotFound)
	}
	return nil
}

// Начисление баллов одним UPDATE, без чтения баланса
func (p *LoyaltyDB) AddPoints(ctx context.Context, enrollmentID string, points int) error {
	q := sq.Update("enrollments").
		Set("points_balance", sq.Expr("points_balance + ?", points)).
		Set("lifetime_points", sq.Expr("lifetime_points + ?", points)).
		Where(sq.Eq{"id": enrollmentID}).
		PlaceholderFormat(sq.Dollar)
	return p.execOne(ctx, "AddPoints", q, "enrollment")
}

// Множитель заменяет текущий
func (p *LoyaltyDB) SetMultiplier(ctx context.Context, enrollmentID string, value float64, expiresAt *time.Time) error {
	q := sq.Update("enrollments").
		Set("multiplier", value).
		Set("multiplier_expires_at", expiresAt).
		Where(sq.Eq{"id": enrollmentID}).
		PlaceholderFormat(sq.Dollar)
	return p.execOne(ctx, "SetMultiplier", q, "enrollment")
}

func (p *LoyaltyDB) GetReward(ctx context.Context, rewardID string) (models.Reward, error) {
	var r models.Reward
	var expires pgtype.Int4
	row := p.pool.QueryRow(ctx,
		"SELECT id, business_id, name, expires_days, is_active FROM rewards WHERE id = $1", rewardID)
	if err := row.Scan(&r.ID, &r.BusinessID, &r.Name, &expires, &r.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r, fmt.Errorf("reward %w", models.ErrNotFound)
		}
		return r, err
	}
	r.ExpiresDays = intValue(expires)
	return r, nil
}

func (p *LoyaltyDB) CreateRedemption(ctx context.Context, r models.Redemption) error {
	sql, args, err := sq.Insert("redemptions").
		Columns("id", "reward_id", "customer_id", "business_id", "enrollment_id", "code",
			"points_spent", "source_trigger_id", "expires_at", "created_at").
		Values(r.ID, r.RewardID, r.CustomerID, r.BusinessID, r.EnrollmentID, r.Code,
			r.PointsSpent, nullText(r.SourceTriggerID), r.ExpiresAt, r.CreatedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		p.sqlError("CreateRedemption", err, sql, args)
		return err
	}
	if _, err = p.pool.Exec(ctx, sql, args...); err != nil {
		p.sqlError("CreateRedemption", err, sql, args)
		return err
	}
	return nil
}

// Тег уникален по (customer, business, tag), повтор обновляет срок и источник
func (p *LoyaltyDB) UpsertTag(ctx context.Context, tag models.CustomerTag) error {
	sql, args, err := sq.Insert("customer_tags").
		Columns("customer_id", "business_id", "tag", "expires_at", "source_rule_id", "updated_at").
		Values(tag.CustomerID, tag.BusinessID, tag.Tag, tag.ExpiresAt, nullText(tag.SourceRuleID), tag.UpdatedAt).
		Suffix("ON CONFLICT (customer_id, business_id, tag) DO UPDATE SET " +
			"expires_at = EXCLUDED.expires_at, source_rule_id = EXCLUDED.source_rule_id, updated_at = EXCLUDED.updated_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		p.sqlError("UpsertTag", err, sql, args)
		return err
	}
	if _, err = p.pool.Exec(ctx, sql, args...); err != nil {
		p.sqlError("UpsertTag", err, sql, args)
		return err
	}
	return nil
}

// вставка отложенного выбора, выполняется в транзакции CreateTrigger
func insertChoice(c models.PendingAwardChoice) (string, []any, error) {
	options, err := toJSON(c.AwardOptions)
	if err != nil {
		return "", nil, err
	}
	return sq.Insert("pending_award_choices").
		Columns("id", "rule_id", "trigger_id", "customer_id", "business_id", "enrollment_id",
			"award_options", "status", "created_at", "expires_at").
		Values(c.ID, c.RuleID, c.TriggerID, c.CustomerID, c.BusinessID, c.EnrollmentID,
			options, c.Status, c.CreatedAt, c.ExpiresAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func (p *LoyaltyDB) GetPendingChoice(ctx context.Context, choiceID string) (models.PendingAwardChoice, error) {
	var c models.PendingAwardChoice
	var options, given []byte
	var index pgtype.Int4
	var location pgtype.Text
	row := p.pool.QueryRow(ctx, `SELECT id, rule_id, trigger_id, customer_id, business_id, enrollment_id,
		award_options, status, claimed_group_index, claimed_location_id, awards_given, created_at, expires_at, claimed_at
		FROM pending_award_choices WHERE id = $1`, choiceID)
	err := row.Scan(&c.ID, &c.RuleID, &c.TriggerID, &c.CustomerID, &c.BusinessID, &c.EnrollmentID,
		&options, &c.Status, &index, &location, &given, &c.CreatedAt, &c.ExpiresAt, &c.ClaimedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c, fmt.Errorf("award choice %w", models.ErrNotFound)
		}
		return c, err
	}
	if err := fromJSON(options, &c.AwardOptions); err != nil {
		return c, err
	}
	if err := fromJSON(given, &c.AwardsGiven); err != nil {
		return c, err
	}
	c.ClaimedGroupIndex = intValue(index)
	c.ClaimedLocationID = textValue(location)
	return c, nil
}

// ClaimPendingChoice - переход pending -> claimed. false, если выбор уже разрешен.
func (p *LoyaltyDB) ClaimPendingChoice(ctx context.Context, choiceID string, groupIndex int, locationID string, at time.Time) (bool, error) {
	sql, args, err := sq.Update("pending_award_choices").
		Set("status", models.ChoiceClaimed).
		Set("claimed_group_index", groupIndex).
		Set("claimed_location_id", nullText(locationID)).
		Set("claimed_at", at).
		Where(sq.Eq{"id": choiceID, "status": models.ChoicePending}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		p.sqlError("ClaimPendingChoice", err, sql, args)
		return false, err
	}
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		p.sqlError("ClaimPendingChoice", err, sql, args)
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (p *LoyaltyDB) SetChoiceAwards(ctx context.Context, choiceID string, results []models.AwardResult) error {
	given, err := toJSON(results)
	if err != nil {
		return err
	}
	q := sq.Update("pending_award_choices").
		Set("awards_given", given).
		Where(sq.Eq{"id": choiceID}).
		PlaceholderFormat(sq.Dollar)
	return p.execOne(ctx, "SetChoiceAwards", q, "award choice")
}

func (p *LoyaltyDB) ExpirePendingChoices(ctx context.Context, at time.Time) (int64, error) {
	sql, args, err := sq.Update("pending_award_choices").
		Set("status", models.ChoiceExpired).
		Where(sq.Eq{"status": models.ChoicePending}).
		Where(sq.Lt{"expires_at": at}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		p.sqlError("ExpirePendingChoices", err, sql, args)
		return 0, err
	}
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		p.sqlError("ExpirePendingChoices", err, sql, args)
		return 0, err
	}
	return tag.RowsAffected(), nil
}
