package rules

import (
	"bytes"
	"encoding/json"
	"time"
)

type AwardType string

const (
	AwardBonusPoints  AwardType = "bonus_points"
	AwardMultiplier   AwardType = "multiplier"
	AwardUnlockReward AwardType = "unlock_reward"
	AwardApplyTag     AwardType = "apply_tag"
)

const (
	DurationDays      = "days"
	DurationUntilDate = "until_date"
	DurationPermanent = "permanent"
)

type Award struct {
	Type          AwardType  `bson:"type" json:"type"`
	Value         float64    `bson:"value,omitempty" json:"value,omitempty"`
	Duration      string     `bson:"duration,omitempty" json:"duration,omitempty"`
	DurationValue int        `bson:"durationValue,omitempty" json:"durationValue,omitempty"`
	UntilDate     *time.Time `bson:"untilDate,omitempty" json:"untilDate,omitempty"`
	RewardID      string     `bson:"rewardId,omitempty" json:"rewardId,omitempty"`
	Tag           string     `bson:"tag,omitempty" json:"tag,omitempty"`
	ExpiresDays   *int       `bson:"expiresDays,omitempty" json:"expiresDays,omitempty"`
	Label         string     `bson:"label,omitempty" json:"label,omitempty"`
}

type AwardGroup struct {
	LocationID string  `bson:"locationId,omitempty" json:"locationId,omitempty"`
	Awards     []Award `bson:"awards" json:"awards"`
}

// AwardSpec - плоский список наград либо группа {operator: OR|AND, groups}.
// В JSON список сериализуется массивом, группа - объектом.
type AwardSpec struct {
	Items    []Award      `bson:"items,omitempty" json:"-"`
	Operator Operator     `bson:"operator,omitempty" json:"-"`
	Groups   []AwardGroup `bson:"groups,omitempty" json:"-"`
}

func (s AwardSpec) IsGroup() bool {
	return s.Operator != ""
}

// All возвращает все награды спецификации (для групп - все группы подряд)
func (s AwardSpec) All() []Award {
	if !s.IsGroup() {
		return s.Items
	}
	var awards []Award
	for _, g := range s.Groups {
		awards = append(awards, g.Awards...)
	}
	return awards
}

type awardGroupJSON struct {
	Operator Operator     `json:"operator"`
	Groups   []AwardGroup `json:"groups"`
}

func (s AwardSpec) MarshalJSON() ([]byte, error) {
	if s.IsGroup() {
		return json.Marshal(awardGroupJSON{s.Operator, s.Groups})
	}
	if s.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Items)
}

func (s *AwardSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = AwardSpec{}
		return nil
	}
	if data[0] == '[' {
		var items []Award
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*s = AwardSpec{Items: items}
		return nil
	}
	var g awardGroupJSON
	if err := json.Unmarshal(data, &g); err != nil {
		return err
	}
	*s = AwardSpec{Operator: g.Operator, Groups: g.Groups}
	return nil
}

// AwardResult - результат применения одной награды
type AwardResult struct {
	Type                AwardType  `json:"type"`
	Success             bool       `json:"success"`
	Error               string     `json:"error,omitempty"`
	Points              int        `json:"points,omitempty"`
	Multiplier          float64    `json:"multiplier,omitempty"`
	MultiplierExpiresAt *time.Time `json:"multiplierExpiresAt,omitempty"`
	RewardID            string     `json:"rewardId,omitempty"`
	RedemptionID        string     `json:"redemptionId,omitempty"`
	RedemptionCode      string     `json:"redemptionCode,omitempty"`
	Tag                 string     `json:"tag,omitempty"`
	TagExpiresAt        *time.Time `json:"tagExpiresAt,omitempty"`
}

// AwardOutcome - итог разрешения AwardSpec: применённые награды или отложенный выбор
type AwardOutcome struct {
	Deferred        bool          `json:"deferred"`
	PendingChoiceID string        `json:"pendingChoiceId,omitempty"`
	Results         []AwardResult `json:"results"`
	TotalPoints     int           `json:"totalPoints"`
	RewardID        string        `json:"rewardId,omitempty"`
}

type ChoiceStatus string

const (
	ChoicePending ChoiceStatus = "pending"
	ChoiceClaimed ChoiceStatus = "claimed"
	ChoiceExpired ChoiceStatus = "expired"
)

// PendingAwardChoice - нерешённая OR-группа наград
type PendingAwardChoice struct {
	ID                string        `json:"id"`
	RuleID            string        `json:"ruleId"`
	TriggerID         string        `json:"triggerId"`
	CustomerID        string        `json:"customerId"`
	BusinessID        string        `json:"businessId"`
	EnrollmentID      string        `json:"enrollmentId"`
	AwardOptions      []AwardGroup  `json:"awardOptions"`
	Status            ChoiceStatus  `json:"status"`
	ClaimedGroupIndex *int          `json:"claimedGroupIndex,omitempty"`
	ClaimedLocationID string        `json:"claimedLocationId,omitempty"`
	AwardsGiven       []AwardResult `json:"awardsGiven,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	ExpiresAt         *time.Time    `json:"expiresAt,omitempty"`
	ClaimedAt         *time.Time    `json:"claimedAt,omitempty"`
}
