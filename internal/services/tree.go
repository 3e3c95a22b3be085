package rules

import (
	"context"

	models "github.com/glkeru/loyalty/rules/internal/models"
	"go.uber.org/zap"
)

// findTimeWindow - первый лист time_window при обходе в глубину
func findTimeWindow(c models.Condition) *models.TimeWindow {
	if c.IsGroup() {
		for _, item := range c.Items {
			if w := findTimeWindow(item); w != nil {
				return w
			}
		}
		return nil
	}
	if c.Type != models.ConditionTimeWindow {
		return nil
	}
	value, _ := toFloat64(c.Params.Value)
	return &models.TimeWindow{Value: int(value), Unit: c.Params.Unit}
}

// EvaluateConditions - оценка дерева условий. Окно времени одно на всё дерево.
func (s *RuleEngineService) EvaluateConditions(ctx context.Context, root models.Condition, ec models.EvaluationContext) (bool, error) {
	return s.evaluateNode(ctx, root, ec, findTimeWindow(root))
}

func (s *RuleEngineService) evaluateNode(ctx context.Context, node models.Condition, ec models.EvaluationContext, window *models.TimeWindow) (bool, error) {
	if !node.IsGroup() {
		ok, err := s.evaluateLeaf(ctx, node, ec, window)
		if err != nil {
			if isConfigError(err) {
				s.warn("EvaluateConditions", err, zap.String("type", string(node.Type)), zap.String("customer", ec.CustomerID))
				return false, nil
			}
			return false, err
		}
		return ok, nil
	}
	if len(node.Items) == 0 {
		s.warn("EvaluateConditions", configErr("empty %s group", node.Operator))
		return false, nil
	}

	switch node.Operator {
	case models.AND:
		for _, item := range node.Items {
			ok, err := s.evaluateNode(ctx, item, ec, window)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case models.OR:
		for _, item := range node.Items {
			ok, err := s.evaluateNode(ctx, item, ec, window)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	s.warn("EvaluateConditions", configErr("unknown operator %q", node.Operator))
	return false, nil
}

// ExplainConditions - то же дерево, но с результатом по каждому узлу (без сокращенного вычисления)
func (s *RuleEngineService) ExplainConditions(ctx context.Context, root models.Condition, ec models.EvaluationContext) (models.ConditionResult, error) {
	return s.explainNode(ctx, root, ec, findTimeWindow(root))
}

func (s *RuleEngineService) explainNode(ctx context.Context, node models.Condition, ec models.EvaluationContext, window *models.TimeWindow) (models.ConditionResult, error) {
	if !node.IsGroup() {
		params := node.Params
		result := models.ConditionResult{Type: node.Type, Params: &params}
		ok, err := s.evaluateLeaf(ctx, node, ec, window)
		if err != nil {
			if !isConfigError(err) {
				return result, err
			}
			result.Error = err.Error()
		}
		result.Passed = ok && err == nil
		return result, nil
	}

	result := models.ConditionResult{Operator: node.Operator}
	var passed int
	for _, item := range node.Items {
		r, err := s.explainNode(ctx, item, ec, window)
		if err != nil {
			return result, err
		}
		if r.Passed {
			passed++
		}
		result.Items = append(result.Items, r)
	}
	switch {
	case len(node.Items) == 0:
		result.Error = "empty group"
	case node.Operator == models.AND:
		result.Passed = passed == len(node.Items)
	case node.Operator == models.OR:
		result.Passed = passed > 0
	default:
		result.Error = "unknown operator " + string(node.Operator)
	}
	return result, nil
}
