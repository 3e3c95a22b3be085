package rules

import (
	"context"

	models "github.com/glkeru/loyalty/rules/internal/models"
)

//go:generate mockgen -destination=./../api/mock_engine_test.go -package=rules . RuleEngine
//go:generate mockgen -destination=./../api/grpc/mock_engine_test.go -package=grpc . RuleEngine

// Операции движка, доступные транспорту (HTTP, gRPC, события)
type RuleEngine interface {
	Evaluate(ctx context.Context, ec models.EvaluationContext) (models.EvaluationResult, error)
	EvaluateRule(ctx context.Context, ruleID string, ec models.EvaluationContext) (models.RuleOutcome, error)
	ClaimAward(ctx context.Context, choiceID string, customerID string, groupIndex int) (models.AwardOutcome, error)
	StartVoyage(ctx context.Context, rulesetID string, customerID string) (*models.RulesetProgress, error)
	VoyageProgress(ctx context.Context, rulesetID string, customerID string) (*models.RulesetProgress, error)
	RecomputeVoyage(ctx context.Context, rulesetID string, customerID string) (*models.RulesetProgress, error)
	SimulateBulk(ctx context.Context, ruleID string) (models.BulkSimulation, error)
	SimulateCustomer(ctx context.Context, ruleID string, customerID string) (models.CustomerSimulation, error)
	SimulateWhatIf(ctx context.Context, ruleID string, customerID string, scenario models.Scenario) (models.WhatIfSimulation, error)
	Rules(ctx context.Context, businessID string, activeOnly bool) ([]models.Rule, error)
	Rule(ctx context.Context, ruleID string) (models.Rule, error)
	SaveRule(ctx context.Context, rule models.Rule) (models.Rule, error)
	DeactivateRule(ctx context.Context, ruleID string) error
	Rulesets(ctx context.Context, businessID string) ([]models.Ruleset, error)
	Ruleset(ctx context.Context, rulesetID string) (models.Ruleset, []models.Rule, error)
	SaveRuleset(ctx context.Context, ruleset models.Ruleset) (models.Ruleset, error)
}
