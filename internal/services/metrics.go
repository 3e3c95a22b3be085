package rules

import (
	"strconv"

	models "github.com/glkeru/loyalty/rules/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// метрики движка

var (
	ruleOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rules_outcomes_total",
			Help: "Результаты оценки правил",
		},
		[]string{"triggered", "reason"},
	)

	awardsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rules_awards_total",
			Help: "Начисленные награды",
		},
		[]string{"type", "success"},
	)

	evaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rules_evaluation_duration_seconds",
			Help:    "Продолжительность оценки одного правила",
			Buckets: prometheus.DefBuckets,
		},
	)

	racesLost = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rules_trigger_conflicts_total",
			Help: "Повторные срабатывания, отклоненные уникальным ключом",
		},
	)

	choicesClaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rules_choices_claimed_total",
			Help: "Выбранные группы наград",
		},
	)

	voyagesCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rules_voyages_completed_total",
			Help: "Завершенные вояжи",
		},
	)

	sweptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rules_swept_total",
			Help: "Просроченные записи",
		},
		[]string{"kind"},
	)
)

func observeOutcome(o models.RuleOutcome) {
	ruleOutcomes.WithLabelValues(strconv.FormatBool(o.Triggered), string(o.Reason)).Inc()
}

func observeAward(r models.AwardResult) {
	awardsApplied.WithLabelValues(string(r.Type), strconv.FormatBool(r.Success)).Inc()
}
