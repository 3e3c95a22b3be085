package rules

import "time"

// Rule - политика "условие → награда" для одного бизнеса
type Rule struct {
	ID                     string     `bson:"id" json:"id"`
	BusinessID             string     `bson:"businessId" json:"businessId"`
	Name                   string     `bson:"name" json:"name"`
	Description            string     `bson:"description,omitempty" json:"description,omitempty"`
	Conditions             Condition  `bson:"conditions" json:"conditions"`
	Awards                 AwardSpec  `bson:"awards" json:"awards"`
	StartsAt               *time.Time `bson:"startsAt,omitempty" json:"startsAt,omitempty"`
	EndsAt                 *time.Time `bson:"endsAt,omitempty" json:"endsAt,omitempty"`
	IsActive               bool       `bson:"isActive" json:"isActive"`
	IsRepeatable           bool       `bson:"isRepeatable" json:"isRepeatable"`
	CooldownDays           *int       `bson:"cooldownDays,omitempty" json:"cooldownDays,omitempty"`
	MaxTriggersPerCustomer *int       `bson:"maxTriggersPerCustomer,omitempty" json:"maxTriggersPerCustomer,omitempty"`
	Priority               int        `bson:"priority" json:"priority"`
	RulesetID              string     `bson:"rulesetId,omitempty" json:"rulesetId,omitempty"`
	SequenceOrder          int        `bson:"sequenceOrder,omitempty" json:"sequenceOrder,omitempty"`
	CreatedAt              time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt              time.Time  `bson:"updatedAt" json:"updatedAt"`
}

type Operator string

const (
	AND Operator = "AND"
	OR  Operator = "OR"
)

type ConditionType string

const (
	ConditionLocationVisit     ConditionType = "location_visit"
	ConditionSpendAmount       ConditionType = "spend_amount"
	ConditionProductPurchase   ConditionType = "product_purchase"
	ConditionDayOfWeek         ConditionType = "day_of_week"
	ConditionDateRange         ConditionType = "date_range"
	ConditionTimeOfDay         ConditionType = "time_of_day"
	ConditionCustomerAttribute ConditionType = "customer_attribute"
	ConditionCustomerTag       ConditionType = "customer_tag"
	ConditionRuleTriggered     ConditionType = "rule_triggered"
	ConditionTimeWindow        ConditionType = "time_window"
)

// Condition - узел дерева условий: либо группа {operator, items}, либо лист {type, params}
type Condition struct {
	Operator Operator        `bson:"operator,omitempty" json:"operator,omitempty"`
	Items    []Condition     `bson:"items,omitempty" json:"items,omitempty"`
	Type     ConditionType   `bson:"type,omitempty" json:"type,omitempty"`
	Params   ConditionParams `bson:"params,omitempty" json:"params,omitempty"`
}

func (c Condition) IsGroup() bool {
	return c.Operator != ""
}

type Comparison string

const (
	GreaterOrEqual Comparison = ">="
	Equal          Comparison = "="
	LessOrEqual    Comparison = "<="
	Greater        Comparison = ">"
	Less           Comparison = "<"
	NotEqual       Comparison = "!="
)

// ConditionParams - параметры всех типов листьев, каждый тип читает только свои поля
type ConditionParams struct {
	// location_visit, spend_amount
	Scope      string `bson:"scope,omitempty" json:"scope,omitempty"`
	LocationID string `bson:"locationId,omitempty" json:"locationId,omitempty"`
	GroupID    string `bson:"groupId,omitempty" json:"groupId,omitempty"`
	Distinct   bool   `bson:"distinct,omitempty" json:"distinct,omitempty"`

	Comparison Comparison `bson:"comparison,omitempty" json:"comparison,omitempty"`
	Value      any        `bson:"value,omitempty" json:"value,omitempty"`

	// product_purchase
	ProductName string `bson:"productName,omitempty" json:"productName,omitempty"`
	Category    string `bson:"category,omitempty" json:"category,omitempty"`
	MatchMode   string `bson:"matchMode,omitempty" json:"matchMode,omitempty"`

	// day_of_week, time_of_day, date_range
	Days      []string `bson:"days,omitempty" json:"days,omitempty"`
	Start     string   `bson:"start,omitempty" json:"start,omitempty"`
	End       string   `bson:"end,omitempty" json:"end,omitempty"`
	StartDate string   `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate   string   `bson:"endDate,omitempty" json:"endDate,omitempty"`

	// customer_attribute
	Attribute string `bson:"attribute,omitempty" json:"attribute,omitempty"`

	// customer_tag, rule_triggered
	Tag        string   `bson:"tag,omitempty" json:"tag,omitempty"`
	Tags       []string `bson:"tags,omitempty" json:"tags,omitempty"`
	Match      string   `bson:"match,omitempty" json:"match,omitempty"`
	RuleIDs    []string `bson:"ruleIds,omitempty" json:"ruleIds,omitempty"`
	Count      int      `bson:"count,omitempty" json:"count,omitempty"`
	WithinDays *int     `bson:"withinDays,omitempty" json:"withinDays,omitempty"`

	// time_window
	Unit string `bson:"unit,omitempty" json:"unit,omitempty"`
}

// TimeWindow - модификатор "с момента now - окно" для запросов к истории
type TimeWindow struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// Since возвращает начало окна, nil при нераспознанной единице
func (w TimeWindow) Since(now time.Time) *time.Time {
	var t time.Time
	switch w.Unit {
	case "minutes":
		t = now.Add(-time.Duration(w.Value) * time.Minute)
	case "hours":
		t = now.Add(-time.Duration(w.Value) * time.Hour)
	case "days", "":
		t = now.AddDate(0, 0, -w.Value)
	case "weeks":
		t = now.AddDate(0, 0, -7*w.Value)
	case "months":
		t = now.AddDate(0, -w.Value, 0)
	default:
		return nil
	}
	return &t
}
