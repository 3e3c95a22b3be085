package rules

import "time"

type TriggerType string

const (
	TriggerTransaction TriggerType = "transaction"
	TriggerVisit       TriggerType = "visit"
	TriggerManual      TriggerType = "manual"
	TriggerScheduled   TriggerType = "scheduled"
)

// EvaluationContext - вход любой оценки правил.
// Zone заполняет вызывающая сторона из настроек бизнеса, оценщики его не подставляют.
type EvaluationContext struct {
	CustomerID    string      `json:"customerId"`
	BusinessID    string      `json:"businessId"`
	EnrollmentID  string      `json:"enrollmentId"`
	LocationID    string      `json:"locationId,omitempty"`
	TransactionID string      `json:"transactionId,omitempty"`
	AmountCents   *int64      `json:"amountCents,omitempty"`
	TriggerType   TriggerType `json:"triggerType"`
	Timezone      string      `json:"timezone,omitempty"`
	EvaluatedAt   time.Time   `json:"evaluatedAt"`
	Scenario      *Scenario   `json:"scenario,omitempty"`

	Zone *time.Location `json:"-"`
}

// Now - момент оценки в часовом поясе бизнеса
func (c EvaluationContext) Now() time.Time {
	if c.Zone == nil {
		return c.EvaluatedAt
	}
	return c.EvaluatedAt.In(c.Zone)
}

// Scenario - гипотетические данные для what-if симуляции
type Scenario struct {
	LocationID  string      `json:"locationId,omitempty"`
	AmountCents *int64      `json:"amountCents,omitempty"`
	At          *time.Time  `json:"at,omitempty"`
	TriggerType TriggerType `json:"triggerType,omitempty"`
}
