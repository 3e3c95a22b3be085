package rules

import "time"

type ChainType string

const (
	ChainSequential ChainType = "sequential"
	ChainParallel   ChainType = "parallel"
)

// Ruleset - вояж, группа правил-шагов
type Ruleset struct {
	ID            string    `bson:"id" json:"id"`
	BusinessID    string    `bson:"businessId" json:"businessId"`
	Name          string    `bson:"name" json:"name"`
	Description   string    `bson:"description,omitempty" json:"description,omitempty"`
	ChainType     ChainType `bson:"chainType" json:"chainType"`
	TimeLimitDays *int      `bson:"timeLimitDays,omitempty" json:"timeLimitDays,omitempty"`
	IsActive      bool      `bson:"isActive" json:"isActive"`
	IsVisible     bool      `bson:"isVisible" json:"isVisible"`
	ShowProgress  bool      `bson:"showProgress" json:"showProgress"`
	// EnforceSequence включает серверную блокировку шагов sequential-вояжа
	EnforceSequence bool      `bson:"enforceSequence" json:"enforceSequence"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressExpired    ProgressStatus = "expired"
)

// RulesetProgress - прогресс клиента по вояжу
type RulesetProgress struct {
	ID               string         `json:"id"`
	RulesetID        string         `json:"rulesetId"`
	CustomerID       string         `json:"customerId"`
	BusinessID       string         `json:"businessId"`
	Status           ProgressStatus `json:"status"`
	CompletedRuleIDs []string       `json:"completedRuleIds"`
	CurrentStep      int            `json:"currentStep"`
	StartedAt        *time.Time     `json:"startedAt,omitempty"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
	ExpiresAt        *time.Time     `json:"expiresAt,omitempty"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

func (p RulesetProgress) HasCompleted(ruleID string) bool {
	for _, id := range p.CompletedRuleIDs {
		if id == ruleID {
			return true
		}
	}
	return false
}

// Terminal - completed и expired больше не меняются
func (p RulesetProgress) Terminal() bool {
	return p.Status == ProgressCompleted || p.Status == ProgressExpired
}
