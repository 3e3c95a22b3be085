package rules

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	models "github.com/glkeru/loyalty/rules/internal/models"
	"github.com/google/uuid"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

// world - состояние хранилищ в памяти, на которое опираются моки
type world struct {
	mu          sync.Mutex
	business    models.Business
	rules       map[string]models.Rule
	rulesets    map[string]models.Ruleset
	enrollments map[string]*models.Enrollment
	locations   []string
	groups      map[string][]string
	visits      []visit
	tnxs        []models.Transaction
	tags        map[string]models.CustomerTag
	triggers    []models.RuleTrigger
	rewards     map[string]models.Reward
	redemptions []models.Redemption
	choices     map[string]*models.PendingAwardChoice
	progress    map[string]*models.RulesetProgress
	published   []models.TriggerEvent

	// ошибка транзакции срабатывания с OR-выбором; ничего не записывается
	choiceWriteErr error
}

type visit struct {
	customerID string
	locationID string
	at         time.Time
}

const (
	testBusiness   = "biz-1"
	testCustomer   = "cust-1"
	testEnrollment = "enr-1"
)

func newWorld() *world {
	w := &world{
		business:    models.Business{ID: testBusiness, Name: "Coffee", Timezone: "UTC"},
		rules:       map[string]models.Rule{},
		rulesets:    map[string]models.Ruleset{},
		enrollments: map[string]*models.Enrollment{},
		groups:      map[string][]string{},
		tags:        map[string]models.CustomerTag{},
		rewards:     map[string]models.Reward{},
		choices:     map[string]*models.PendingAwardChoice{},
		progress:    map[string]*models.RulesetProgress{},
	}
	w.addEnrollment(testEnrollment, testCustomer)
	return w
}

func (w *world) addEnrollment(id, customerID string) *models.Enrollment {
	e := &models.Enrollment{
		ID:         id,
		CustomerID: customerID,
		BusinessID: testBusiness,
		Tier:       "silver",
		Multiplier: 1,
		EnrolledAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	w.enrollments[id] = e
	return e
}

func (w *world) addRule(r models.Rule) models.Rule {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.BusinessID == "" {
		r.BusinessID = testBusiness
	}
	w.rules[r.ID] = r
	return r
}

func since(t time.Time, s *time.Time) bool {
	return s == nil || !t.Before(*s)
}

func contains(list []string, v string) bool {
	for _, l := range list {
		if l == v {
			return true
		}
	}
	return false
}

func (w *world) triggerCount(customerID, ruleID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	var n int
	for _, t := range w.triggers {
		if t.CustomerID == customerID && t.RuleID == ruleID {
			n++
		}
	}
	return n
}

func (w *world) enrollment(id string) models.Enrollment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.enrollments[id]
}

// service собирает движок поверх моков, которые читают и пишут world
func (w *world) service(t *testing.T, now time.Time) *RuleEngineService {
	t.Helper()
	ctrl := gomock.NewController(t)

	rules := NewMockRuleStorage(ctrl)
	history := NewMockHistoryStorage(ctrl)
	triggers := NewMockTriggerStorage(ctrl)
	awards := NewMockAwardStorage(ctrl)
	progress := NewMockProgressStorage(ctrl)
	cache := NewMockCacheStorage(ctrl)
	notifier := NewMockNotifier(ctrl)

	x := gomock.Any()

	// каталог
	rules.EXPECT().GetActiveRules(x, x).AnyTimes().DoAndReturn(func(_ context.Context, businessID string) ([]models.Rule, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		var out []models.Rule
		for _, r := range w.rules {
			if r.BusinessID == businessID && r.IsActive {
				out = append(out, r)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out, nil
	})
	rules.EXPECT().GetRule(x, x).AnyTimes().DoAndReturn(func(_ context.Context, id string) (models.Rule, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		r, ok := w.rules[id]
		if !ok {
			return r, models.ErrNotFound
		}
		return r, nil
	})
	rules.EXPECT().GetRuleset(x, x).AnyTimes().DoAndReturn(func(_ context.Context, id string) (models.Ruleset, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		r, ok := w.rulesets[id]
		if !ok {
			return r, models.ErrNotFound
		}
		return r, nil
	})
	rules.EXPECT().GetRulesetRules(x, x).AnyTimes().DoAndReturn(func(_ context.Context, id string) ([]models.Rule, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		var out []models.Rule
		for _, r := range w.rules {
			if r.RulesetID == id {
				out = append(out, r)
			}
		}
		return out, nil
	})
	rules.EXPECT().SaveRule(x, x).AnyTimes().DoAndReturn(func(_ context.Context, r models.Rule) (models.Rule, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		w.rules[r.ID] = r
		return r, nil
	})
	rules.EXPECT().GetAllRules(x, x).AnyTimes().DoAndReturn(func(_ context.Context, businessID string) ([]models.Rule, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		var out []models.Rule
		for _, r := range w.rules {
			if r.BusinessID == businessID {
				out = append(out, r)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out, nil
	})
	rules.EXPECT().GetRulesets(x, x).AnyTimes().DoAndReturn(func(_ context.Context, businessID string) ([]models.Ruleset, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		var out []models.Ruleset
		for _, r := range w.rulesets {
			if r.BusinessID == businessID {
				out = append(out, r)
			}
		}
		return out, nil
	})
	rules.EXPECT().SaveRuleset(x, x).AnyTimes().DoAndReturn(func(_ context.Context, r models.Ruleset) (models.Ruleset, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		w.rulesets[r.ID] = r
		return r, nil
	})
	rules.EXPECT().DeactivateRule(x, x).AnyTimes().DoAndReturn(func(_ context.Context, id string) error {
		w.mu.Lock()
		defer w.mu.Unlock()
		r, ok := w.rules[id]
		if !ok {
			return models.ErrNotFound
		}
		r.IsActive = false
		w.rules[id] = r
		return nil
	})

	// история
	history.EXPECT().GetBusiness(x, x).AnyTimes().DoAndReturn(func(_ context.Context, id string) (models.Business, error) {
		if id != w.business.ID {
			return models.Business{}, models.ErrNotFound
		}
		return w.business, nil
	})
	history.EXPECT().GetEnrollment(x, x).AnyTimes().DoAndReturn(func(_ context.Context, id string) (models.Enrollment, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		e, ok := w.enrollments[id]
		if !ok {
			return models.Enrollment{}, models.ErrNotFound
		}
		return *e, nil
	})
	history.EXPECT().GetEnrollments(x, x).AnyTimes().DoAndReturn(func(_ context.Context, businessID string) ([]models.Enrollment, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		var out []models.Enrollment
		for _, e := range w.enrollments {
			if e.BusinessID == businessID {
				out = append(out, *e)
			}
		}
		return out, nil
	})
	history.EXPECT().FindEnrollment(x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, customerID, businessID string) (models.Enrollment, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		for _, e := range w.enrollments {
			if e.CustomerID == customerID && e.BusinessID == businessID {
				return *e, nil
			}
		}
		return models.Enrollment{}, models.ErrNotFound
	})
	history.EXPECT().CountVisits(x, x, x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, customerID, _ string, locationIDs []string, s *time.Time) (int, error) {
		var n int
		for _, v := range w.visits {
			if v.customerID == customerID && since(v.at, s) && (locationIDs == nil || contains(locationIDs, v.locationID)) {
				n++
			}
		}
		return n, nil
	})
	history.EXPECT().VisitedLocations(x, x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, customerID, _ string, s *time.Time) ([]string, error) {
		var out []string
		for _, v := range w.visits {
			if v.customerID == customerID && since(v.at, s) && !contains(out, v.locationID) {
				out = append(out, v.locationID)
			}
		}
		return out, nil
	})
	history.EXPECT().ActiveLocations(x, x).AnyTimes().DoAndReturn(func(_ context.Context, _ string) ([]string, error) {
		return w.locations, nil
	})
	history.EXPECT().GroupLocations(x, x).AnyTimes().DoAndReturn(func(_ context.Context, groupID string) ([]string, error) {
		return w.groups[groupID], nil
	})
	history.EXPECT().SumSpend(x, x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, customerID, _ string, s *time.Time) (int64, error) {
		var sum int64
		for _, t := range w.tnxs {
			if t.CustomerID == customerID && !t.Voided && since(t.CreatedAt, s) {
				sum += t.AmountCents
			}
		}
		return sum, nil
	})
	history.EXPECT().GetTransactions(x, x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, customerID, _ string, s *time.Time) ([]models.Transaction, error) {
		var out []models.Transaction
		for _, t := range w.tnxs {
			if t.CustomerID == customerID && since(t.CreatedAt, s) {
				out = append(out, t)
			}
		}
		return out, nil
	})
	history.EXPECT().GetActiveTags(x, x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, customerID, _ string, at time.Time) ([]string, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		var out []string
		for _, tag := range w.tags {
			if tag.CustomerID == customerID && (tag.ExpiresAt == nil || tag.ExpiresAt.After(at)) {
				out = append(out, tag.Tag)
			}
		}
		return out, nil
	})

	// журнал срабатываний, уникальность (customer, rule) как в индексе БД
	triggers.EXPECT().CountTriggers(x, x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, customerID, ruleID string, s *time.Time) (int, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		var n int
		for _, t := range w.triggers {
			if t.CustomerID == customerID && t.RuleID == ruleID && since(t.TriggeredAt, s) {
				n++
			}
		}
		return n, nil
	})
	triggers.EXPECT().LastTriggeredAt(x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, customerID, ruleID string) (*time.Time, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		var last *time.Time
		for _, t := range w.triggers {
			if t.CustomerID == customerID && t.RuleID == ruleID && (last == nil || t.TriggeredAt.After(*last)) {
				at := t.TriggeredAt
				last = &at
			}
		}
		return last, nil
	})
	triggers.EXPECT().TriggeredRules(x, x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, customerID string, ruleIDs []string, s *time.Time) ([]string, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		var out []string
		for _, t := range w.triggers {
			if t.CustomerID == customerID && contains(ruleIDs, t.RuleID) && since(t.TriggeredAt, s) && !contains(out, t.RuleID) {
				out = append(out, t.RuleID)
			}
		}
		return out, nil
	})
	triggers.EXPECT().CreateTrigger(x, x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, trigger models.RuleTrigger, unique bool, choice *models.PendingAwardChoice) (bool, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		if choice != nil && w.choiceWriteErr != nil {
			return false, w.choiceWriteErr
		}
		if unique {
			for _, t := range w.triggers {
				if t.CustomerID == trigger.CustomerID && t.RuleID == trigger.RuleID {
					return false, nil
				}
			}
		}
		w.triggers = append(w.triggers, trigger)
		if choice != nil {
			c := *choice
			w.choices[c.ID] = &c
		}
		return true, nil
	})
	triggers.EXPECT().CompleteTrigger(x, x).AnyTimes().DoAndReturn(func(_ context.Context, trigger models.RuleTrigger) error {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, t := range w.triggers {
			if t.ID == trigger.ID {
				w.triggers[i] = trigger
				return nil
			}
		}
		return models.ErrNotFound
	})

	// награды
	awards.EXPECT().AddPoints(x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, enrollmentID string, points int) error {
		w.mu.Lock()
		defer w.mu.Unlock()
		e, ok := w.enrollments[enrollmentID]
		if !ok {
			return models.ErrNotFound
		}
		e.PointsBalance += points
		e.LifetimePoints += points
		return nil
	})
	awards.EXPECT().SetMultiplier(x, x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, enrollmentID string, value float64, expiresAt *time.Time) error {
		w.mu.Lock()
		defer w.mu.Unlock()
		e, ok := w.enrollments[enrollmentID]
		if !ok {
			return models.ErrNotFound
		}
		e.Multiplier = value
		e.MultiplierExpiresAt = expiresAt
		return nil
	})
	awards.EXPECT().GetReward(x, x).AnyTimes().DoAndReturn(func(_ context.Context, id string) (models.Reward, error) {
		r, ok := w.rewards[id]
		if !ok {
			return r, models.ErrNotFound
		}
		return r, nil
	})
	awards.EXPECT().CreateRedemption(x, x).AnyTimes().DoAndReturn(func(_ context.Context, r models.Redemption) error {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.redemptions = append(w.redemptions, r)
		return nil
	})
	awards.EXPECT().UpsertTag(x, x).AnyTimes().DoAndReturn(func(_ context.Context, tag models.CustomerTag) error {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.tags[tag.CustomerID+"|"+tag.BusinessID+"|"+tag.Tag] = tag
		return nil
	})
	awards.EXPECT().GetPendingChoice(x, x).AnyTimes().DoAndReturn(func(_ context.Context, id string) (models.PendingAwardChoice, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		c, ok := w.choices[id]
		if !ok {
			return models.PendingAwardChoice{}, models.ErrNotFound
		}
		return *c, nil
	})
	awards.EXPECT().ClaimPendingChoice(x, x, x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, id string, idx int, locationID string, at time.Time) (bool, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		c, ok := w.choices[id]
		if !ok || c.Status != models.ChoicePending {
			return false, nil
		}
		c.Status = models.ChoiceClaimed
		c.ClaimedGroupIndex = &idx
		c.ClaimedLocationID = locationID
		c.ClaimedAt = &at
		return true, nil
	})
	awards.EXPECT().SetChoiceAwards(x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, id string, results []models.AwardResult) error {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.choices[id].AwardsGiven = results
		return nil
	})
	awards.EXPECT().ExpirePendingChoices(x, x).AnyTimes().DoAndReturn(func(_ context.Context, at time.Time) (int64, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		var n int64
		for _, c := range w.choices {
			if c.Status == models.ChoicePending && c.ExpiresAt != nil && c.ExpiresAt.Before(at) {
				c.Status = models.ChoiceExpired
				n++
			}
		}
		return n, nil
	})

	// прогресс
	progress.EXPECT().GetProgress(x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, rulesetID, customerID string) (*models.RulesetProgress, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		p, ok := w.progress[rulesetID+"|"+customerID]
		if !ok {
			return nil, nil
		}
		cp := *p
		cp.CompletedRuleIDs = append([]string(nil), p.CompletedRuleIDs...)
		return &cp, nil
	})
	progress.EXPECT().UpdateProgress(x, x, x, x).AnyTimes().DoAndReturn(func(_ context.Context, rulesetID, customerID string, fn func(p *models.RulesetProgress) (bool, error)) (*models.RulesetProgress, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		key := rulesetID + "|" + customerID
		p, ok := w.progress[key]
		if !ok {
			p = &models.RulesetProgress{ID: uuid.NewString(), RulesetID: rulesetID, CustomerID: customerID, Status: models.ProgressNotStarted}
		}
		cp := *p
		cp.CompletedRuleIDs = append([]string(nil), p.CompletedRuleIDs...)
		changed, err := fn(&cp)
		if err != nil {
			return nil, err
		}
		if changed {
			w.progress[key] = &cp
		}
		return &cp, nil
	})
	progress.EXPECT().ExpireProgress(x, x).AnyTimes().DoAndReturn(func(_ context.Context, at time.Time) (int64, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		var n int64
		for _, p := range w.progress {
			if p.Status == models.ProgressInProgress && p.ExpiresAt != nil && p.ExpiresAt.Before(at) {
				p.Status = models.ProgressExpired
				n++
			}
		}
		return n, nil
	})

	// кэш всегда пустой, чтобы чтения шли в историю
	cache.EXPECT().GetEnrollment(x, x).AnyTimes().Return(models.Enrollment{}, models.ErrNotFound)
	cache.EXPECT().SetEnrollment(x, x).AnyTimes().Return(nil)
	cache.EXPECT().InvalidateEnrollment(x, x).AnyTimes().Return(nil)

	notifier.EXPECT().PublishTrigger(x, x).AnyTimes().DoAndReturn(func(_ context.Context, e models.TriggerEvent) error {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.published = append(w.published, e)
		return nil
	})

	s := NewRuleEngineService(Stores{
		Rules:    rules,
		History:  history,
		Triggers: triggers,
		Awards:   awards,
		Progress: progress,
		Cache:    cache,
		Notifier: notifier,
	}, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

// контекст транзакции на сумму в центах
func txnContext(amountCents int64, at time.Time) models.EvaluationContext {
	return models.EvaluationContext{
		CustomerID:   testCustomer,
		BusinessID:   testBusiness,
		EnrollmentID: testEnrollment,
		AmountCents:  &amountCents,
		TriggerType:  models.TriggerTransaction,
		EvaluatedAt:  at,
	}
}

func intPtr(v int) *int {
	return &v
}
