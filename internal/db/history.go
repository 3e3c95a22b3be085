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

// Бизнес
func (p *LoyaltyDB) GetBusiness(ctx context.Context, businessID string) (models.Business, error) {
	var b models.Business
	var tz pgtype.Text
	row := p.pool.QueryRow(ctx, "SELECT id, name, timezone FROM businesses WHERE id = $1", businessID)
	err := row.Scan(&b.ID, &b.Name, &tz)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return b, fmt.Errorf("business %w", models.ErrNotFound)
		}
		return b, err
	}
	b.Timezone = textValue(tz)
	return b, nil
}

var enrollmentColumns = []string{
	"id", "customer_id", "business_id", "tier", "points_balance", "lifetime_points",
	"lifetime_spend_cents", "visit_count", "multiplier", "multiplier_expires_at", "enrolled_at",
}

func scanEnrollment(row pgx.Row) (models.Enrollment, error) {
	var e models.Enrollment
	var tier pgtype.Text
	err := row.Scan(&e.ID, &e.CustomerID, &e.BusinessID, &tier, &e.PointsBalance, &e.LifetimePoints,
		&e.LifetimeSpendCents, &e.VisitCount, &e.Multiplier, &e.MultiplierExpiresAt, &e.EnrolledAt)
	e.Tier = textValue(tier)
	return e, err
}

func (p *LoyaltyDB) findEnrollment(ctx context.Context, where sq.Eq) (models.Enrollment, error) {
	sql, args, err := sq.Select(enrollmentColumns...).
		From("enrollments").
		Where(where).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		p.sqlError("findEnrollment", err, sql, args)
		return models.Enrollment{}, err
	}
	e, err := scanEnrollment(p.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return e, fmt.Errorf("enrollment %w", models.ErrNotFound)
		}
		return e, err
	}
	return e, nil
}

func (p *LoyaltyDB) GetEnrollment(ctx context.Context, enrollmentID string) (models.Enrollment, error) {
	return p.findEnrollment(ctx, sq.Eq{"id": enrollmentID})
}

func (p *LoyaltyDB) FindEnrollment(ctx context.Context, customerID, businessID string) (models.Enrollment, error) {
	return p.findEnrollment(ctx, sq.Eq{"customer_id": customerID, "business_id": businessID})
}

// Все участники программы бизнеса
func (p *LoyaltyDB) GetEnrollments(ctx context.Context, businessID string) ([]models.Enrollment, error) {
	sql, args, err := sq.Select(enrollmentColumns...).
		From("enrollments").
		Where(sq.Eq{"business_id": businessID}).
		OrderBy("id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		p.sqlError("GetEnrollments", err, sql, args)
		return nil, err
	}
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		p.sqlError("GetEnrollments", err, sql, args)
		return nil, err
	}
	defer rows.Close()

	var enrollments []models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// фильтр по клиенту, бизнесу и началу окна
func customerFilter(q sq.SelectBuilder, column, customerID, businessID string, since *time.Time) sq.SelectBuilder {
	q = q.Where(sq.Eq{"customer_id": customerID, "business_id": businessID})
	if since != nil {
		q = q.Where(sq.GtOrEq{column: *since})
	}
	return q
}

// Количество визитов, locationIDs == nil - любые точки
func (p *LoyaltyDB) CountVisits(ctx context.Context, customerID, businessID string, locationIDs []string, since *time.Time) (int, error) {
	q := customerFilter(sq.Select("COUNT(*)").From("visits"), "created_at", customerID, businessID, since)
	if locationIDs != nil {
		q = q.Where(sq.Eq{"location_id": locationIDs})
	}
	sql, args, err := q.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		p.sqlError("CountVisits", err, sql, args)
		return 0, err
	}
	var count int
	if err := p.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		p.sqlError("CountVisits", err, sql, args)
		return 0, err
	}
	return count, nil
}

func (p *LoyaltyDB) queryStrings(ctx context.Context, service string, q sq.SelectBuilder) ([]string, error) {
	sql, args, err := q.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		p.sqlError(service, err, sql, args)
		return nil, err
	}
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		p.sqlError(service, err, sql, args)
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Различные посещенные точки
func (p *LoyaltyDB) VisitedLocations(ctx context.Context, customerID, businessID string, since *time.Time) ([]string, error) {
	q := customerFilter(sq.Select("DISTINCT location_id").From("visits"), "created_at", customerID, businessID, since)
	return p.queryStrings(ctx, "VisitedLocations", q)
}

func (p *LoyaltyDB) ActiveLocations(ctx context.Context, businessID string) ([]string, error) {
	q := sq.Select("id").From("locations").Where(sq.Eq{"business_id": businessID, "is_active": true})
	return p.queryStrings(ctx, "ActiveLocations", q)
}

func (p *LoyaltyDB) GroupLocations(ctx context.Context, groupID string) ([]string, error) {
	q := sq.Select("id").From("locations").Where(sq.Eq{"group_id": groupID, "is_active": true})
	return p.queryStrings(ctx, "GroupLocations", q)
}

// Сумма неотмененных покупок в центах
func (p *LoyaltyDB) SumSpend(ctx context.Context, customerID, businessID string, since *time.Time) (int64, error) {
	q := customerFilter(sq.Select("COALESCE(SUM(amount_cents), 0)").From("transactions"), "created_at", customerID, businessID, since).
		Where(sq.Eq{"voided": false})
	sql, args, err := q.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		p.sqlError("SumSpend", err, sql, args)
		return 0, err
	}
	var sum int64
	if err := p.pool.QueryRow(ctx, sql, args...).Scan(&sum); err != nil {
		p.sqlError("SumSpend", err, sql, args)
		return 0, err
	}
	return sum, nil
}

// Покупки с позициями
func (p *LoyaltyDB) GetTransactions(ctx context.Context, customerID, businessID string, since *time.Time) ([]models.Transaction, error) {
	q := customerFilter(
		sq.Select("id", "customer_id", "business_id", "location_id", "amount_cents", "voided", "items", "created_at").From("transactions"),
		"created_at", customerID, businessID, since,
	).OrderBy("created_at")
	sql, args, err := q.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		p.sqlError("GetTransactions", err, sql, args)
		return nil, err
	}
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		p.sqlError("GetTransactions", err, sql, args)
		return nil, err
	}
	defer rows.Close()

	var tnxs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var location pgtype.Text
		var items []byte
		if err := rows.Scan(&t.ID, &t.CustomerID, &t.BusinessID, &location, &t.AmountCents, &t.Voided, &items, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.LocationID = textValue(location)
		if err := fromJSON(items, &t.Items); err != nil {
			return nil, fmt.Errorf("transaction %s items: %w", t.ID, err)
		}
		tnxs = append(tnxs, t)
	}
	return tnxs, rows.Err()
}

// Действующие на момент at теги
func (p *LoyaltyDB) GetActiveTags(ctx context.Context, customerID, businessID string, at time.Time) ([]string, error) {
	q := sq.Select("tag").From("customer_tags").
		Where(sq.Eq{"customer_id": customerID, "business_id": businessID}).
		Where(sq.Or{sq.Eq{"expires_at": nil}, sq.Gt{"expires_at": at}})
	return p.queryStrings(ctx, "GetActiveTags", q)
}
