package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	models "github.com/glkeru/loyalty/rules/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RulesDB - каталог правил и вояжей в Mongo
type RulesDB struct {
	mgo      *mongo.Client
	rules    *mongo.Collection
	rulesets *mongo.Collection
}

func NewRulesDB() (*RulesDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mng := os.Getenv("RULES_MONGO")
	if mng == "" {
		return nil, fmt.Errorf("env RULES_MONGO is not set")
	}

	opts := options.Client().ApplyURI("mongodb://" + mng)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, err
	}
	db := client.Database("rulesDB")

	return &RulesDB{client, db.Collection("rules"), db.Collection("rulesets")}, nil
}

func (r *RulesDB) Close(ctx context.Context) error {
	return r.mgo.Disconnect(ctx)
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]T, error) {
	defer cur.Close(ctx)
	var out []T
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, cur.Err()
}

func (r *RulesDB) findRules(ctx context.Context, filter bson.M) ([]models.Rule, error) {
	cur, err := r.rules.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Rule](ctx, cur)
}

func (r *RulesDB) GetActiveRules(ctx context.Context, businessID string) ([]models.Rule, error) {
	return r.findRules(ctx, bson.M{"businessId": businessID, "isActive": true})
}

func (r *RulesDB) GetAllRules(ctx context.Context, businessID string) ([]models.Rule, error) {
	return r.findRules(ctx, bson.M{"businessId": businessID})
}

func (r *RulesDB) GetRulesetRules(ctx context.Context, rulesetID string) ([]models.Rule, error) {
	return r.findRules(ctx, bson.M{"rulesetId": rulesetID})
}

func (r *RulesDB) GetRule(ctx context.Context, ruleID string) (rule models.Rule, err error) {
	err = r.rules.FindOne(ctx, bson.M{"id": ruleID}).Decode(&rule)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return rule, fmt.Errorf("rule %s %w", ruleID, models.ErrNotFound)
	}
	return rule, err
}

// SaveRule - пустой ID означает новое правило
func (r *RulesDB) SaveRule(ctx context.Context, rule models.Rule) (models.Rule, error) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
		_, err := r.rules.InsertOne(ctx, rule)
		return rule, err
	}
	// Обновление
	_, err := r.rules.ReplaceOne(ctx, bson.M{"id": rule.ID}, rule, options.Replace().SetUpsert(true))
	return rule, err
}

func (r *RulesDB) DeactivateRule(ctx context.Context, ruleID string) error {
	res, err := r.rules.UpdateOne(ctx, bson.M{"id": ruleID},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("rule %s %w", ruleID, models.ErrNotFound)
	}
	return nil
}

func (r *RulesDB) GetRuleset(ctx context.Context, rulesetID string) (ruleset models.Ruleset, err error) {
	err = r.rulesets.FindOne(ctx, bson.M{"id": rulesetID}).Decode(&ruleset)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ruleset, fmt.Errorf("ruleset %s %w", rulesetID, models.ErrNotFound)
	}
	return ruleset, err
}

func (r *RulesDB) GetRulesets(ctx context.Context, businessID string) ([]models.Ruleset, error) {
	cur, err := r.rulesets.Find(ctx, bson.M{"businessId": businessID})
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Ruleset](ctx, cur)
}

func (r *RulesDB) SaveRuleset(ctx context.Context, ruleset models.Ruleset) (models.Ruleset, error) {
	if ruleset.ID == "" {
		ruleset.ID = uuid.NewString()
		_, err := r.rulesets.InsertOne(ctx, ruleset)
		return ruleset, err
	}
	_, err := r.rulesets.ReplaceOne(ctx, bson.M{"id": ruleset.ID}, ruleset, options.Replace().SetUpsert(true))
	return ruleset, err
}
