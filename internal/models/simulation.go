package rules

// GateCheck - результат одной проверки допуска (окно, повторяемость, кулдаун, лимит, очередность)
type GateCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Reason Reason `json:"reason,omitempty"`
}

// ConditionResult - разбор дерева условий по узлам
type ConditionResult struct {
	Type     ConditionType     `json:"type,omitempty"`
	Operator Operator          `json:"operator,omitempty"`
	Params   *ConditionParams  `json:"params,omitempty"`
	Passed   bool              `json:"passed"`
	Error    string            `json:"error,omitempty"`
	Items    []ConditionResult `json:"items,omitempty"`
}

// BulkSimulation - "кто сработал бы сегодня" по всем участникам
type BulkSimulation struct {
	RuleID                string   `json:"ruleId"`
	Total                 int      `json:"total"`
	Eligible              int      `json:"eligible"`
	AlreadyTriggered      int      `json:"alreadyTriggered"`
	InCooldown            int      `json:"inCooldown"`
	AtCap                 int      `json:"atCap"`
	SequenceLocked        int      `json:"sequenceLocked"`
	WouldTrigger          int      `json:"wouldTrigger"`
	Reason                Reason   `json:"reason,omitempty"`
	TriggeringCustomerIDs []string `json:"triggeringCustomerIds"`
}

// CustomerSimulation - детальный разбор для одного клиента
type CustomerSimulation struct {
	RuleID     string          `json:"ruleId"`
	CustomerID string          `json:"customerId"`
	Gates      []GateCheck     `json:"gates"`
	Conditions ConditionResult `json:"conditions"`
	Verdict    bool            `json:"verdict"`
	Reason     Reason          `json:"reason,omitempty"`
	WouldAward AwardSpec       `json:"wouldAward"`
}

// WhatIfSimulation - оценка на гипотетическом сценарии, без проверок 2-4
type WhatIfSimulation struct {
	RuleID     string            `json:"ruleId"`
	Context    EvaluationContext `json:"context"`
	Gates      []GateCheck       `json:"gates"`
	Conditions ConditionResult   `json:"conditions"`
	Verdict    bool              `json:"verdict"`
	Reason     Reason            `json:"reason,omitempty"`
	WouldAward AwardSpec         `json:"wouldAward"`
}
