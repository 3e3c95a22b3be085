package rules

import (
	"fmt"

	models "github.com/glkeru/loyalty/rules/internal/models"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidRule, fmt.Sprintf(format, args...))
}

// ValidateRule - проверка правила перед сохранением. При оценке правило заново не проверяется.
func ValidateRule(rule models.Rule) error {
	if rule.Name == "" {
		return invalid("name is required")
	}
	if rule.BusinessID == "" {
		return invalid("businessId is required")
	}
	if rule.StartsAt != nil && rule.EndsAt != nil && rule.EndsAt.Before(*rule.StartsAt) {
		return invalid("endsAt is before startsAt")
	}
	if rule.CooldownDays != nil && *rule.CooldownDays < 0 {
		return invalid("cooldownDays is negative")
	}
	if rule.MaxTriggersPerCustomer != nil && *rule.MaxTriggersPerCustomer <= 0 {
		return invalid("maxTriggersPerCustomer must be positive")
	}
	if err := validateCondition(rule.Conditions, "conditions"); err != nil {
		return err
	}
	return validateAwards(rule.Awards)
}

func validateCondition(c models.Condition, path string) error {
	if c.IsGroup() {
		if c.Operator != models.AND && c.Operator != models.OR {
			return invalid("%s: unknown operator %q", path, c.Operator)
		}
		if len(c.Items) == 0 {
			return invalid("%s: %s group is empty", path, c.Operator)
		}
		for i, item := range c.Items {
			if err := validateCondition(item, fmt.Sprintf("%s.items[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	}

	p := c.Params
	switch c.Type {
	case models.ConditionLocationVisit:
		switch p.Scope {
		case "specific":
			if p.LocationID == "" {
				return invalid("%s: locationId is required", path)
			}
		case "group":
			if p.GroupID == "" {
				return invalid("%s: groupId is required", path)
			}
		case "any", "all", "":
		default:
			return invalid("%s: unknown scope %q", path, p.Scope)
		}
	case models.ConditionSpendAmount:
		if _, ok := toFloat64(p.Value); !ok {
			return invalid("%s: value must be a number", path)
		}
	case models.ConditionProductPurchase:
		if p.ProductName == "" && p.Category == "" {
			return invalid("%s: productName or category is required", path)
		}
	case models.ConditionDayOfWeek:
		if len(p.Days) == 0 {
			return invalid("%s: days are required", path)
		}
	case models.ConditionDateRange:
		if p.StartDate == "" && p.EndDate == "" {
			return invalid("%s: startDate or endDate is required", path)
		}
	case models.ConditionTimeOfDay:
		if _, err := parseClock(p.Start); err != nil {
			return invalid("%s: %s", path, err.Error())
		}
		if _, err := parseClock(p.End); err != nil {
			return invalid("%s: %s", path, err.Error())
		}
	case models.ConditionCustomerAttribute:
		if p.Attribute == "" {
			return invalid("%s: attribute is required", path)
		}
	case models.ConditionCustomerTag:
		if p.Tag == "" && len(p.Tags) == 0 {
			return invalid("%s: tag is required", path)
		}
	case models.ConditionRuleTriggered:
		if len(p.RuleIDs) == 0 {
			return invalid("%s: ruleIds are required", path)
		}
	case models.ConditionTimeWindow:
		if v, ok := toFloat64(p.Value); !ok || v <= 0 {
			return invalid("%s: window value must be positive", path)
		}
	default:
		return invalid("%s: unknown condition type %q", path, c.Type)
	}
	return nil
}

func validateAwards(spec models.AwardSpec) error {
	if !spec.IsGroup() {
		return validateAwardList(spec.Items, "awards")
	}
	if spec.Operator != models.AND && spec.Operator != models.OR {
		return invalid("awards: unknown operator %q", spec.Operator)
	}
	if len(spec.Groups) == 0 {
		return invalid("awards: %s group is empty", spec.Operator)
	}
	for i, g := range spec.Groups {
		if len(g.Awards) == 0 {
			return invalid("awards.groups[%d] is empty", i)
		}
		if err := validateAwardList(g.Awards, fmt.Sprintf("awards.groups[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func validateAwardList(awards []models.Award, path string) error {
	for i, a := range awards {
		switch a.Type {
		case models.AwardBonusPoints, models.AwardMultiplier:
			if a.Value <= 0 {
				return invalid("%s[%d]: value must be positive", path, i)
			}
		case models.AwardUnlockReward:
			if a.RewardID == "" {
				return invalid("%s[%d]: rewardId is required", path, i)
			}
		case models.AwardApplyTag:
			if a.Tag == "" {
				return invalid("%s[%d]: tag is required", path, i)
			}
		default:
			return invalid("%s[%d]: unknown award type %q", path, i, a.Type)
		}
	}
	return nil
}

// ValidateRuleset - проверка вояжа перед сохранением
func ValidateRuleset(ruleset models.Ruleset) error {
	if ruleset.Name == "" {
		return invalid("ruleset name is required")
	}
	if ruleset.BusinessID == "" {
		return invalid("ruleset businessId is required")
	}
	switch ruleset.ChainType {
	case models.ChainSequential, models.ChainParallel:
	default:
		return invalid("unknown chainType %q", ruleset.ChainType)
	}
	if ruleset.TimeLimitDays != nil && *ruleset.TimeLimitDays <= 0 {
		return invalid("timeLimitDays must be positive")
	}
	return nil
}
