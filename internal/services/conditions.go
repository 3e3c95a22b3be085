package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	models "github.com/glkeru/loyalty/rules/internal/models"
)

// configError - ошибка конфигурации листа: лист считается ложным, оценка продолжается
type configError struct {
	msg string
}

func (e *configError) Error() string {
	return e.msg
}

func configErr(format string, args ...any) error {
	return &configError{fmt.Sprintf(format, args...)}
}

func isConfigError(err error) bool {
	var ce *configError
	return errors.As(err, &ce)
}

// evaluateLeaf - один лист дерева условий.
// Ошибка возвращается для сбоев хранилища и ошибок конфигурации (configError).
func (s *RuleEngineService) evaluateLeaf(ctx context.Context, cond models.Condition, ec models.EvaluationContext, window *models.TimeWindow) (bool, error) {
	switch cond.Type {
	case models.ConditionLocationVisit:
		return s.locationVisit(ctx, cond.Params, ec, window)
	case models.ConditionSpendAmount:
		return s.spendAmount(ctx, cond.Params, ec, window)
	case models.ConditionProductPurchase:
		return s.productPurchase(ctx, cond.Params, ec, window)
	case models.ConditionDayOfWeek:
		return dayOfWeek(cond.Params, ec)
	case models.ConditionDateRange:
		return dateRange(cond.Params, ec)
	case models.ConditionTimeOfDay:
		return timeOfDay(cond.Params, ec)
	case models.ConditionCustomerAttribute:
		return s.customerAttribute(ctx, cond.Params, ec)
	case models.ConditionCustomerTag:
		return s.customerTag(ctx, cond.Params, ec)
	case models.ConditionRuleTriggered:
		return s.ruleTriggered(ctx, cond.Params, ec, window)
	case models.ConditionTimeWindow:
		// модификатор, извлекается обходчиком дерева
		return true, nil
	}
	return false, configErr("unknown condition type %q", cond.Type)
}

// начало окна для запросов к истории
func windowSince(window *models.TimeWindow, ec models.EvaluationContext) (*time.Time, error) {
	if window == nil {
		return nil, nil
	}
	since := window.Since(ec.EvaluatedAt)
	if since == nil {
		return nil, configErr("unknown time window unit %q", window.Unit)
	}
	return since, nil
}

// числовой value с значением по умолчанию
func numberParam(p models.ConditionParams, def float64) (float64, error) {
	if p.Value == nil {
		return def, nil
	}
	v, ok := toFloat64(p.Value)
	if !ok {
		return 0, configErr("value %v is not a number", p.Value)
	}
	return v, nil
}

func compareNumber(actual float64, p models.ConditionParams, expected float64) (bool, error) {
	ok, err := checkCondition(actual, p.Comparison, expected)
	if err != nil {
		return false, configErr("%s", err.Error())
	}
	return ok, nil
}

// точка гипотетического визита what-if сценария, в истории его нет
func scenarioLocation(ec models.EvaluationContext) string {
	if ec.Scenario == nil {
		return ""
	}
	return ec.Scenario.LocationID
}

// список посещенных точек с учетом гипотетического визита
func withVisit(visited []string, location string) []string {
	if location == "" {
		return visited
	}
	for _, v := range visited {
		if v == location {
			return visited
		}
	}
	return append(visited, location)
}

// Визиты
func (s *RuleEngineService) locationVisit(ctx context.Context, p models.ConditionParams, ec models.EvaluationContext, window *models.TimeWindow) (bool, error) {
	since, err := windowSince(window, ec)
	if err != nil {
		return false, err
	}
	h := s.stores.History
	extra := scenarioLocation(ec)

	if p.Scope == "all" {
		active, err := h.ActiveLocations(ctx, ec.BusinessID)
		if err != nil {
			return false, err
		}
		// пустое множество точек - условие выполнено
		if len(active) == 0 {
			return true, nil
		}
		visited, err := h.VisitedLocations(ctx, ec.CustomerID, ec.BusinessID, since)
		if err != nil {
			return false, err
		}
		visited = withVisit(visited, extra)
		set := make(map[string]struct{}, len(visited))
		for _, v := range visited {
			set[v] = struct{}{}
		}
		for _, l := range active {
			if _, ok := set[l]; !ok {
				return false, nil
			}
		}
		return true, nil
	}

	expected, err := numberParam(p, 1)
	if err != nil {
		return false, err
	}

	var count int
	switch p.Scope {
	case "any", "":
		if p.Distinct {
			visited, err := h.VisitedLocations(ctx, ec.CustomerID, ec.BusinessID, since)
			if err != nil {
				return false, err
			}
			count = len(withVisit(visited, extra))
		} else {
			count, err = h.CountVisits(ctx, ec.CustomerID, ec.BusinessID, nil, since)
			if err != nil {
				return false, err
			}
			if extra != "" {
				count++
			}
		}
	case "specific":
		if p.LocationID == "" {
			return false, configErr("location_visit: locationId is required")
		}
		count, err = h.CountVisits(ctx, ec.CustomerID, ec.BusinessID, []string{p.LocationID}, since)
		if err != nil {
			return false, err
		}
		if extra == p.LocationID {
			count++
		}
	case "group":
		if p.GroupID == "" {
			return false, configErr("location_visit: groupId is required")
		}
		group, err := h.GroupLocations(ctx, p.GroupID)
		if err != nil {
			return false, err
		}
		if len(group) == 0 {
			break
		}
		if p.Distinct {
			visited, err := h.VisitedLocations(ctx, ec.CustomerID, ec.BusinessID, since)
			if err != nil {
				return false, err
			}
			count = len(intersect(withVisit(visited, extra), group))
		} else {
			count, err = h.CountVisits(ctx, ec.CustomerID, ec.BusinessID, group, since)
			if err != nil {
				return false, err
			}
			if extra != "" && len(intersect([]string{extra}, group)) == 1 {
				count++
			}
		}
	default:
		return false, configErr("location_visit: unknown scope %q", p.Scope)
	}
	return compareNumber(float64(count), p, expected)
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
			delete(set, v)
		}
	}
	return out
}

// Сумма покупок, value в валюте, сравнение в центах
func (s *RuleEngineService) spendAmount(ctx context.Context, p models.ConditionParams, ec models.EvaluationContext, window *models.TimeWindow) (bool, error) {
	value, err := numberParam(p, 0)
	if err != nil {
		return false, err
	}
	expected := toCents(value)

	switch p.Scope {
	case "single_transaction":
		// сумма берется из контекста, не из истории
		if ec.AmountCents == nil {
			return false, nil
		}
		return compareNumber(float64(*ec.AmountCents), p, float64(expected))
	case "cumulative", "":
		since, err := windowSince(window, ec)
		if err != nil {
			return false, err
		}
		total, err := s.stores.History.SumSpend(ctx, ec.CustomerID, ec.BusinessID, since)
		if err != nil {
			return false, err
		}
		// сумма what-if сценария - еще одна покупка сверх истории
		if ec.Scenario != nil && ec.AmountCents != nil {
			total += *ec.AmountCents
		}
		return compareNumber(float64(total), p, float64(expected))
	}
	return false, configErr("spend_amount: unknown scope %q", p.Scope)
}

// Покупка товара: количество позиций по имени или категории
func (s *RuleEngineService) productPurchase(ctx context.Context, p models.ConditionParams, ec models.EvaluationContext, window *models.TimeWindow) (bool, error) {
	if p.ProductName == "" && p.Category == "" {
		return false, configErr("product_purchase: productName or category is required")
	}
	expected, err := numberParam(p, 1)
	if err != nil {
		return false, err
	}
	since, err := windowSince(window, ec)
	if err != nil {
		return false, err
	}
	tnxs, err := s.stores.History.GetTransactions(ctx, ec.CustomerID, ec.BusinessID, since)
	if err != nil {
		return false, err
	}

	var quantity int
	for _, t := range tnxs {
		if t.Voided {
			continue
		}
		for _, item := range t.Items {
			if !matchItem(item, p) {
				continue
			}
			if item.Quantity > 0 {
				quantity += item.Quantity
			} else {
				quantity++
			}
		}
	}
	return compareNumber(float64(quantity), p, expected)
}

func matchItem(item models.LineItem, p models.ConditionParams) bool {
	match := func(field, want string) bool {
		field, want = strings.ToLower(field), strings.ToLower(want)
		if p.MatchMode == "exact" {
			return field == want
		}
		return strings.Contains(field, want)
	}
	if p.ProductName != "" && !match(item.Name, p.ProductName) {
		return false
	}
	if p.Category != "" && !match(item.Category, p.Category) {
		return false
	}
	return true
}

// Часы бизнеса, часовой пояс не подставляется
func businessNow(ec models.EvaluationContext) (time.Time, error) {
	if ec.Zone == nil {
		return time.Time{}, configErr("%s", models.ErrNoTimezone.Error())
	}
	return ec.Now(), nil
}

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
var weekends = []string{"saturday", "sunday"}

// День недели, поддерживает weekdays/weekends
func dayOfWeek(p models.ConditionParams, ec models.EvaluationContext) (bool, error) {
	if len(p.Days) == 0 {
		return false, configErr("day_of_week: days are required")
	}
	now, err := businessNow(ec)
	if err != nil {
		return false, err
	}
	today := strings.ToLower(now.Weekday().String())
	for _, d := range p.Days {
		var days []string
		switch d = strings.ToLower(d); d {
		case "weekdays":
			days = weekdays
		case "weekends":
			days = weekends
		default:
			days = []string{d}
		}
		for _, v := range days {
			if v == today {
				return true, nil
			}
		}
	}
	return false, nil
}

// Интервал дат включительно, формат 2006-01-02
func dateRange(p models.ConditionParams, ec models.EvaluationContext) (bool, error) {
	if p.StartDate == "" && p.EndDate == "" {
		return false, configErr("date_range: startDate or endDate is required")
	}
	for _, d := range []string{p.StartDate, p.EndDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return false, configErr("date_range: %s", err.Error())
		}
	}
	now, err := businessNow(ec)
	if err != nil {
		return false, err
	}
	today := now.Format(time.DateOnly)
	if p.StartDate != "" && today < p.StartDate {
		return false, nil
	}
	if p.EndDate != "" && today > p.EndDate {
		return false, nil
	}
	return true, nil
}

// Время суток HH:MM, start > end - интервал через полночь
func timeOfDay(p models.ConditionParams, ec models.EvaluationContext) (bool, error) {
	start, err := parseClock(p.Start)
	if err != nil {
		return false, err
	}
	end, err := parseClock(p.End)
	if err != nil {
		return false, err
	}
	now, err := businessNow(ec)
	if err != nil {
		return false, err
	}
	current := now.Hour()*60 + now.Minute()
	if start <= end {
		return current >= start && current <= end, nil
	}
	return current >= start || current <= end, nil
}

// минуты от полуночи
func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, configErr("time_of_day: bad time %q", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Атрибуты участника программы
func (s *RuleEngineService) customerAttribute(ctx context.Context, p models.ConditionParams, ec models.EvaluationContext) (bool, error) {
	enrollment, err := s.loadEnrollment(ctx, ec.EnrollmentID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var actual float64
	switch p.Attribute {
	case "tier":
		expected, ok := p.Value.(string)
		if !ok {
			return false, configErr("customer_attribute: tier value must be a string")
		}
		switch p.Comparison {
		case models.Equal, "":
			return strings.EqualFold(enrollment.Tier, expected), nil
		case models.NotEqual:
			return !strings.EqualFold(enrollment.Tier, expected), nil
		}
		return false, configErr("customer_attribute: comparison %q is not allowed for tier", p.Comparison)
	case "membership_days":
		actual = float64(int(ec.EvaluatedAt.Sub(enrollment.EnrolledAt).Hours() / 24))
	case "lifetime_spend":
		actual = float64(enrollment.LifetimeSpendCents) / 100
	case "lifetime_points":
		actual = float64(enrollment.LifetimePoints)
	case "visit_count":
		actual = float64(enrollment.VisitCount)
	case "points_balance":
		actual = float64(enrollment.PointsBalance)
	case "multiplier":
		actual = enrollment.ActiveMultiplier(ec.EvaluatedAt)
	default:
		return false, configErr("customer_attribute: unknown attribute %q", p.Attribute)
	}
	expected, err := numberParam(p, 0)
	if err != nil {
		return false, err
	}
	return compareNumber(actual, p, expected)
}

// Теги клиента (без учета регистра)
func (s *RuleEngineService) customerTag(ctx context.Context, p models.ConditionParams, ec models.EvaluationContext) (bool, error) {
	required := make([]string, 0, len(p.Tags)+1)
	if p.Tag != "" {
		required = append(required, strings.ToLower(p.Tag))
	}
	for _, t := range p.Tags {
		required = append(required, strings.ToLower(t))
	}
	if len(required) == 0 {
		return false, configErr("customer_tag: tag or tags are required")
	}

	tags, err := s.stores.History.GetActiveTags(ctx, ec.CustomerID, ec.BusinessID, ec.EvaluatedAt)
	if err != nil {
		return false, err
	}
	active := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		active[strings.ToLower(t)] = struct{}{}
	}
	var found int
	for _, t := range required {
		if _, ok := active[t]; ok {
			found++
		}
	}

	switch p.Match {
	case "has", "has_all", "":
		return found == len(required), nil
	case "has_not":
		return found == 0, nil
	case "has_any":
		return found > 0, nil
	}
	return false, configErr("customer_tag: unknown match %q", p.Match)
}

// Срабатывание других правил - цепочки без явного графа
func (s *RuleEngineService) ruleTriggered(ctx context.Context, p models.ConditionParams, ec models.EvaluationContext, window *models.TimeWindow) (bool, error) {
	ids := unique(p.RuleIDs)
	if len(ids) == 0 {
		return false, configErr("rule_triggered: ruleIds are required")
	}
	var since *time.Time
	if p.WithinDays != nil && *p.WithinDays > 0 {
		t := ec.EvaluatedAt.AddDate(0, 0, -*p.WithinDays)
		since = &t
	} else {
		var err error
		since, err = windowSince(window, ec)
		if err != nil {
			return false, err
		}
	}

	triggered, err := s.stores.Triggers.TriggeredRules(ctx, ec.CustomerID, ids, since)
	if err != nil {
		return false, err
	}
	found := len(intersect(triggered, ids))

	switch p.Match {
	case "all", "":
		return found == len(ids), nil
	case "any":
		return found > 0, nil
	case "at_least":
		count := p.Count
		if count <= 0 {
			count = 1
		}
		return found >= count, nil
	}
	return false, configErr("rule_triggered: unknown match %q", p.Match)
}

func unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
