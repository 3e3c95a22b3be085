package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	models "github.com/glkeru/loyalty/rules/internal/models"
	redis "github.com/redis/go-redis/v9"
)

// CacheService - кэш enrollment для customer_attribute
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService() (serv *CacheService, err error) {
	// config
	addr := os.Getenv("RULES_CACHE_URL")
	if addr == "" {
		return nil, fmt.Errorf("env RULES_CACHE_URL is not set")
	}
	user := os.Getenv("RULES_CACHE_USER")
	if user == "" {
		return nil, fmt.Errorf("env RULES_CACHE_USER is not set")
	}
	pwd := os.Getenv("RULES_CACHE_PWD")
	if pwd == "" {
		return nil, fmt.Errorf("env RULES_CACHE_PWD is not set")
	}
	// redis
	db := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    pwd,
		Username:    user,
		DB:          0,
		MaxRetries:  5,
		DialTimeout: 10 * time.Second,
	})
	err = db.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}

	return &CacheService{db, 5 * time.Minute}, nil
}

func enrollmentKey(id string) string {
	return "enrollment:" + id
}

func (c *CacheService) GetEnrollment(ctx context.Context, enrollmentID string) (models.Enrollment, error) {
	var e models.Enrollment
	val, err := c.client.Get(ctx, enrollmentKey(enrollmentID)).Bytes()
	if err == redis.Nil {
		return e, models.ErrNotFound
	} else if err != nil {
		return e, err
	}
	if err := json.Unmarshal(val, &e); err != nil {
		return e, err
	}
	return e, nil
}

func (c *CacheService) SetEnrollment(ctx context.Context, e models.Enrollment) error {
	val, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, enrollmentKey(e.ID), val, c.ttl).Err()
}

func (c *CacheService) InvalidateEnrollment(ctx context.Context, enrollmentID string) error {
	return c.client.Del(ctx, enrollmentKey(enrollmentID)).Err()
}

func (c *CacheService) Close() error {
	return c.client.Close()
}
