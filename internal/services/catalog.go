package rules

import (
	"context"
	"encoding/json"
	"fmt"

	models "github.com/glkeru/loyalty/rules/internal/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Catalog - файл с вояжами и правилами бизнеса
type Catalog struct {
	Rulesets []models.Ruleset `json:"rulesets"`
	Rules    []models.Rule    `json:"rules"`
}

// ParseCatalog читает YAML каталог.
// Поля совпадают с JSON API, поэтому документ переводится в JSON и декодируется моделями.
func ParseCatalog(data []byte) (Catalog, error) {
	var catalog Catalog
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return catalog, fmt.Errorf("catalog: %w", err)
	}
	j, err := json.Marshal(doc)
	if err != nil {
		return catalog, fmt.Errorf("catalog: %w", err)
	}
	if err = json.Unmarshal(j, &catalog); err != nil {
		return catalog, fmt.Errorf("catalog: %w", err)
	}
	return catalog, nil
}

// ImportCatalog проверяет весь каталог и только потом сохраняет: сначала вояжи, затем правила
func (s *RuleEngineService) ImportCatalog(ctx context.Context, catalog Catalog) (rulesets int, rules int, err error) {
	for i, rs := range catalog.Rulesets {
		if err := ValidateRuleset(rs); err != nil {
			return 0, 0, fmt.Errorf("rulesets[%d]: %w", i, err)
		}
	}
	for i, r := range catalog.Rules {
		if err := ValidateRule(r); err != nil {
			return 0, 0, fmt.Errorf("rules[%d] %q: %w", i, r.Name, err)
		}
	}

	for _, rs := range catalog.Rulesets {
		if _, err := s.SaveRuleset(ctx, rs); err != nil {
			return rulesets, rules, err
		}
		rulesets++
	}
	for _, r := range catalog.Rules {
		if _, err := s.SaveRule(ctx, r); err != nil {
			return rulesets, rules, err
		}
		rules++
	}
	s.logger.Info("catalog imported",
		zap.String("service", "ImportCatalog"),
		zap.Int("rulesets", rulesets),
		zap.Int("rules", rules),
	)
	return rulesets, rules, nil
}
