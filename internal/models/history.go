package rules

import "time"

type Business struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// Enrollment - участие клиента в программе лояльности бизнеса
type Enrollment struct {
	ID                  string     `json:"id"`
	CustomerID          string     `json:"customerId"`
	BusinessID          string     `json:"businessId"`
	Tier                string     `json:"tier"`
	PointsBalance       int        `json:"pointsBalance"`
	LifetimePoints      int        `json:"lifetimePoints"`
	LifetimeSpendCents  int64      `json:"lifetimeSpendCents"`
	VisitCount          int        `json:"visitCount"`
	Multiplier          float64    `json:"multiplier"`
	MultiplierExpiresAt *time.Time `json:"multiplierExpiresAt,omitempty"`
	EnrolledAt          time.Time  `json:"enrolledAt"`
}

// ActiveMultiplier - текущий множитель, 1 если не задан или истёк
func (e Enrollment) ActiveMultiplier(at time.Time) float64 {
	if e.Multiplier <= 0 {
		return 1
	}
	if e.MultiplierExpiresAt != nil && at.After(*e.MultiplierExpiresAt) {
		return 1
	}
	return e.Multiplier
}

type LineItem struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price,omitempty"`
}

type Transaction struct {
	ID          string     `json:"id"`
	CustomerID  string     `json:"customerId"`
	BusinessID  string     `json:"businessId"`
	LocationID  string     `json:"locationId"`
	AmountCents int64      `json:"amountCents"`
	Voided      bool       `json:"voided"`
	Items       []LineItem `json:"items"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type Reward struct {
	ID          string `json:"id"`
	BusinessID  string `json:"businessId"`
	Name        string `json:"name"`
	ExpiresDays *int   `json:"expiresDays,omitempty"`
	IsActive    bool   `json:"isActive"`
}

// Redemption - разблокированная награда (без списания баллов)
type Redemption struct {
	ID              string     `json:"id"`
	RewardID        string     `json:"rewardId"`
	CustomerID      string     `json:"customerId"`
	BusinessID      string     `json:"businessId"`
	EnrollmentID    string     `json:"enrollmentId"`
	Code            string     `json:"code"`
	PointsSpent     int        `json:"pointsSpent"`
	SourceTriggerID string     `json:"sourceTriggerId,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// CustomerTag уникален по (customer, business, tag)
type CustomerTag struct {
	CustomerID   string     `json:"customerId"`
	BusinessID   string     `json:"businessId"`
	Tag          string     `json:"tag"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	SourceRuleID string     `json:"sourceRuleId,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
