package rules

import (
	"context"

	interf "github.com/glkeru/loyalty/rules/internal/interfaces"
	"go.uber.org/zap"
)

var (
	_ interf.RuleStorage     = (*RulesDB)(nil)
	_ interf.HistoryStorage  = (*LoyaltyDB)(nil)
	_ interf.TriggerStorage  = (*LoyaltyDB)(nil)
	_ interf.AwardStorage    = (*LoyaltyDB)(nil)
	_ interf.ProgressStorage = (*LoyaltyDB)(nil)
	_ interf.CacheStorage    = (*CacheService)(nil)
)

// Storage - подключения движка: Mongo, Postgres и необязательный Redis
type Storage struct {
	Rules   *RulesDB
	Loyalty *LoyaltyDB
	Cache   *CacheService
}

func OpenStorage(logger *zap.Logger) (*Storage, error) {
	rules, err := NewRulesDB()
	if err != nil {
		return nil, err
	}
	loyalty, err := NewLoyaltyDB(logger)
	if err != nil {
		rules.Close(context.Background())
		return nil, err
	}
	// без кэша работаем напрямую с Postgres
	cache, err := NewCacheService()
	if err != nil {
		logger.Warn("cache is disabled", zap.String("service", "OpenStorage"), zap.Error(err))
		cache = nil
	}
	return &Storage{rules, loyalty, cache}, nil
}

// Cacher - кэш как интерфейс, nil если Redis не настроен
func (s *Storage) Cacher() interf.CacheStorage {
	if s.Cache == nil {
		return nil
	}
	return s.Cache
}

func (s *Storage) Close() {
	if s.Cache != nil {
		s.Cache.Close()
	}
	s.Loyalty.Close()
	s.Rules.Close(context.Background())
}
