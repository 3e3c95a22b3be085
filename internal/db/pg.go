package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// LoyaltyDB - история клиентов, журнал срабатываний, награды и прогресс вояжей в Postgres
type LoyaltyDB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewLoyaltyDB(logger *zap.Logger) (db *LoyaltyDB, err error) {
	// config
	purl := os.Getenv("RULES_DB")
	if purl == "" {
		return nil, fmt.Errorf("env RULES_DB is not set")
	}
	port := os.Getenv("RULES_DB_PORT")
	if port == "" {
		return nil, fmt.Errorf("env RULES_DB_PORT is not set")
	}
	user := os.Getenv("RULES_DB_USER")
	if user == "" {
		return nil, fmt.Errorf("env RULES_DB_USER is not set")
	}
	password := os.Getenv("RULES_DB_PASSWORD")
	if password == "" {
		return nil, fmt.Errorf("env RULES_DB_PASSWORD is not set")
	}
	database := os.Getenv("RULES_DB_BASE")
	if database == "" {
		return nil, fmt.Errorf("env RULES_DB_BASE is not set")
	}
	dsn := "postgres://" + user + ":" + password + "@" + purl + ":" + port + "/" + database

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &LoyaltyDB{pool, logger}, nil
}

func (p *LoyaltyDB) Close() {
	p.pool.Close()
}

func (p *LoyaltyDB) sqlError(service string, err error, query string, args []any) {
	p.logger.Error("SQL error",
		zap.String("service", service),
		zap.Error(err),
		zap.String("query", query),
		zap.Any("args", args),
	)
}

// пустая строка пишется как NULL
func nullText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func textValue(t pgtype.Text) string {
	if t.Status != pgtype.Present {
		return ""
	}
	return t.String
}

func intValue(i pgtype.Int4) *int {
	if i.Status != pgtype.Present {
		return nil
	}
	v := int(i.Int)
	return &v
}

func toJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// jsonb колонка, NULL оставляет значение пустым
func fromJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
