package rules

import (
	"fmt"
	"math"
	"strings"

	models "github.com/glkeru/loyalty/rules/internal/models"
)

// Проверка условия: actual <comparison> expected
func checkCondition(actual any, comparison models.Comparison, expected any) (bool, error) {
	if comparison == "" {
		comparison = models.GreaterOrEqual
	}
	result, err := compareValues(actual, expected)
	if err != nil {
		return false, fmt.Errorf("condition is wrong: %w", err)
	}

	switch comparison {
	case models.Equal:
		return result == 0, nil
	case models.NotEqual:
		return result != 0, nil
	case models.Greater:
		return result == 1, nil
	case models.Less:
		return result == -1, nil
	case models.GreaterOrEqual:
		return result >= 0, nil
	case models.LessOrEqual:
		return result <= 0, nil
	}
	return false, fmt.Errorf("unknown comparison %q", comparison)
}

// Если равны возвращаем 0, если actual больше expected 1, если меньше -1.
// Строки сравниваются без учета регистра.
func compareValues(actual, expected any) (int, error) {
	// числа
	numActual, actualok := toFloat64(actual)
	numExpected, expectedok := toFloat64(expected)
	if actualok && expectedok {
		switch {
		case numActual > numExpected:
			return 1, nil
		case numActual < numExpected:
			return -1, nil
		default:
			return 0, nil
		}
	}

	// bool
	boolActual, actualok := actual.(bool)
	boolExpected, expectedok := expected.(bool)
	if actualok && expectedok {
		if boolActual == boolExpected {
			return 0, nil
		}
		return -1, nil
	}

	// string
	strActual, actualok := actual.(string)
	strExpected, expectedok := expected.(string)
	if actualok && expectedok {
		return strings.Compare(strings.ToLower(strActual), strings.ToLower(strExpected)), nil
	}

	return 0, fmt.Errorf("compare is impossible: %v, %v", actual, expected)
}

// преобразование в float64, JSON дает float64, bson - int32/int64
func toFloat64(a any) (float64, bool) {
	switch val := a.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	}
	return 0, false
}

// сумма в валюте -> центы
func toCents(value float64) int64 {
	return int64(math.Round(value * 100))
}
