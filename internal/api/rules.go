package rules

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	interf "github.com/glkeru/loyalty/rules/internal/interfaces"
	models "github.com/glkeru/loyalty/rules/internal/models"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RulesHandler struct {
	router *mux.Router
	engine interf.RuleEngine
	logger *zap.Logger
}

func NewHandler(engine interf.RuleEngine, logger *zap.Logger) *RulesHandler {
	router := mux.NewRouter()
	handler := &RulesHandler{router, engine, logger}
	router.Use(MiddlewareLog())

	// оценка
	router.HandleFunc("/evaluate", handler.EvaluateHandler).Methods(http.MethodPost)
	router.HandleFunc("/rule/{id}/evaluate", handler.EvaluateRuleHandler).Methods(http.MethodPost)
	router.HandleFunc("/choice/{id}/claim", handler.ClaimHandler).Methods(http.MethodPost)

	// вояжи
	router.HandleFunc("/ruleset/{id}/progress", handler.ProgressHandler).Methods(http.MethodGet)
	router.HandleFunc("/ruleset/{id}/start", handler.StartVoyageHandler).Methods(http.MethodPost)
	router.HandleFunc("/ruleset/{id}/recompute", handler.RecomputeHandler).Methods(http.MethodPost)

	// симулятор
	router.HandleFunc("/rule/{id}/simulate", handler.SimulateBulkHandler).Methods(http.MethodGet)
	router.HandleFunc("/rule/{id}/simulate/{customer}", handler.SimulateCustomerHandler).Methods(http.MethodGet)
	router.HandleFunc("/rule/{id}/whatif", handler.WhatIfHandler).Methods(http.MethodPost)

	// администрирование
	router.HandleFunc("/rules", handler.GetRulesHandler).Methods(http.MethodGet)
	router.HandleFunc("/rule/{id}", handler.GetRuleHandler).Methods(http.MethodGet)
	router.HandleFunc("/rule", handler.SaveRuleHandler).Methods(http.MethodPost)
	router.HandleFunc("/rule/{id}", handler.DeactivateRuleHandler).Methods(http.MethodDelete)
	router.HandleFunc("/rulesets", handler.GetRulesetsHandler).Methods(http.MethodGet)
	router.HandleFunc("/ruleset/{id}", handler.GetRulesetHandler).Methods(http.MethodGet)
	router.HandleFunc("/ruleset", handler.SaveRulesetHandler).Methods(http.MethodPost)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return handler
}

func (r *RulesHandler) ServeHTTP(w http.ResponseWriter, res *http.Request) {
	r.router.ServeHTTP(w, res)
}

// Traced - обработчик с трассировкой входящих запросов
func (r *RulesHandler) Traced() http.Handler {
	return otelhttp.NewHandler(r, "rules-http")
}

func (r *RulesHandler) Log(msg string, service string, err error) {
	r.logger.Error(msg,
		zap.String("service", service),
		zap.Error(err),
	)
}

// ответ JSON
func (r *RulesHandler) write(w http.ResponseWriter, service string, status int, v any) {
	j, err := json.Marshal(v)
	if err != nil {
		r.Log("Marshal", service, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(j)
}

// ошибка движка -> HTTP статус
func (r *RulesHandler) fail(w http.ResponseWriter, service string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidRule), errors.Is(err, models.ErrInvalidChoice):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrChoiceResolved):
		status = http.StatusConflict
	case errors.Is(err, models.ErrChoiceExpired):
		status = http.StatusGone
	}
	if status == http.StatusInternalServerError {
		r.Log("Engine error", service, err)
	}
	http.Error(w, err.Error(), status)
}

// тело запроса
func (r *RulesHandler) read(w http.ResponseWriter, req *http.Request, service string, v any) bool {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		r.Log("Get request body", service, err)
		http.Error(w, "Body is empty", http.StatusBadRequest)
		return false
	}
	defer req.Body.Close()
	if err = json.Unmarshal(body, v); err != nil {
		http.Error(w, "Body is not correct: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// Оценка всех активных правил бизнеса
func (r *RulesHandler) EvaluateHandler(w http.ResponseWriter, req *http.Request) {
	var ec models.EvaluationContext
	if !r.read(w, req, "EvaluateHandler", &ec) {
		return
	}
	if ec.CustomerID == "" || ec.BusinessID == "" {
		http.Error(w, "customerId and businessId are required", http.StatusBadRequest)
		return
	}
	result, err := r.engine.Evaluate(req.Context(), ec)
	if err != nil {
		r.fail(w, "EvaluateHandler", err)
		return
	}
	r.write(w, "EvaluateHandler", http.StatusOK, result)
}

// Оценка одного правила
func (r *RulesHandler) EvaluateRuleHandler(w http.ResponseWriter, req *http.Request) {
	var ec models.EvaluationContext
	if !r.read(w, req, "EvaluateRuleHandler", &ec) {
		return
	}
	if ec.CustomerID == "" || ec.BusinessID == "" {
		http.Error(w, "customerId and businessId are required", http.StatusBadRequest)
		return
	}
	outcome, err := r.engine.EvaluateRule(req.Context(), mux.Vars(req)["id"], ec)
	if err != nil {
		r.fail(w, "EvaluateRuleHandler", err)
		return
	}
	r.write(w, "EvaluateRuleHandler", http.StatusOK, outcome)
}

type ClaimRequest struct {
	CustomerID string `json:"customerId"`
	GroupIndex int    `json:"groupIndex"`
}

// Выбор группы наград
func (r *RulesHandler) ClaimHandler(w http.ResponseWriter, req *http.Request) {
	var claim ClaimRequest
	if !r.read(w, req, "ClaimHandler", &claim) {
		return
	}
	if claim.CustomerID == "" {
		http.Error(w, "customerId is required", http.StatusBadRequest)
		return
	}
	outcome, err := r.engine.ClaimAward(req.Context(), mux.Vars(req)["id"], claim.CustomerID, claim.GroupIndex)
	if err != nil {
		r.fail(w, "ClaimHandler", err)
		return
	}
	r.write(w, "ClaimHandler", http.StatusOK, outcome)
}

type CustomerRequest struct {
	CustomerID string `json:"customerId"`
}

func (r *RulesHandler) ProgressHandler(w http.ResponseWriter, req *http.Request) {
	customer := req.URL.Query().Get("customerId")
	if customer == "" {
		http.Error(w, "customerId is required", http.StatusBadRequest)
		return
	}
	progress, err := r.engine.VoyageProgress(req.Context(), mux.Vars(req)["id"], customer)
	if err != nil {
		r.fail(w, "ProgressHandler", err)
		return
	}
	r.write(w, "ProgressHandler", http.StatusOK, progress)
}

// изменения прогресса: старт и пересчет
func (r *RulesHandler) voyageAction(service string, action func(*http.Request, string, string) (*models.RulesetProgress, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body CustomerRequest
		if !r.read(w, req, service, &body) {
			return
		}
		if body.CustomerID == "" {
			http.Error(w, "customerId is required", http.StatusBadRequest)
			return
		}
		progress, err := action(req, mux.Vars(req)["id"], body.CustomerID)
		if err != nil {
			r.fail(w, service, err)
			return
		}
		r.write(w, service, http.StatusOK, progress)
	}
}

func (r *RulesHandler) StartVoyageHandler(w http.ResponseWriter, req *http.Request) {
	r.voyageAction("StartVoyageHandler", func(req *http.Request, id, customer string) (*models.RulesetProgress, error) {
		return r.engine.StartVoyage(req.Context(), id, customer)
	})(w, req)
}

func (r *RulesHandler) RecomputeHandler(w http.ResponseWriter, req *http.Request) {
	r.voyageAction("RecomputeHandler", func(req *http.Request, id, customer string) (*models.RulesetProgress, error) {
		return r.engine.RecomputeVoyage(req.Context(), id, customer)
	})(w, req)
}

// Кто сработал бы сейчас
func (r *RulesHandler) SimulateBulkHandler(w http.ResponseWriter, req *http.Request) {
	result, err := r.engine.SimulateBulk(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, "SimulateBulkHandler", err)
		return
	}
	r.write(w, "SimulateBulkHandler", http.StatusOK, result)
}

func (r *RulesHandler) SimulateCustomerHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	result, err := r.engine.SimulateCustomer(req.Context(), vars["id"], vars["customer"])
	if err != nil {
		r.fail(w, "SimulateCustomerHandler", err)
		return
	}
	r.write(w, "SimulateCustomerHandler", http.StatusOK, result)
}

type WhatIfRequest struct {
	CustomerID string          `json:"customerId"`
	Scenario   models.Scenario `json:"scenario"`
}

func (r *RulesHandler) WhatIfHandler(w http.ResponseWriter, req *http.Request) {
	var body WhatIfRequest
	if !r.read(w, req, "WhatIfHandler", &body) {
		return
	}
	if body.CustomerID == "" {
		http.Error(w, "customerId is required", http.StatusBadRequest)
		return
	}
	result, err := r.engine.SimulateWhatIf(req.Context(), mux.Vars(req)["id"], body.CustomerID, body.Scenario)
	if err != nil {
		r.fail(w, "WhatIfHandler", err)
		return
	}
	r.write(w, "WhatIfHandler", http.StatusOK, result)
}

// Правила бизнеса, ?all=true - включая неактивные
func (r *RulesHandler) GetRulesHandler(w http.ResponseWriter, req *http.Request) {
	business := req.URL.Query().Get("businessId")
	if business == "" {
		http.Error(w, "businessId is required", http.StatusBadRequest)
		return
	}
	rules, err := r.engine.Rules(req.Context(), business, req.URL.Query().Get("all") != "true")
	if err != nil {
		r.fail(w, "GetRulesHandler", err)
		return
	}
	if rules == nil {
		rules = []models.Rule{}
	}
	r.write(w, "GetRulesHandler", http.StatusOK, rules)
}

func (r *RulesHandler) GetRuleHandler(w http.ResponseWriter, req *http.Request) {
	rule, err := r.engine.Rule(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, "GetRuleHandler", err)
		return
	}
	r.write(w, "GetRuleHandler", http.StatusOK, rule)
}

// Создать/обновить правило
func (r *RulesHandler) SaveRuleHandler(w http.ResponseWriter, req *http.Request) {
	var rule models.Rule
	if !r.read(w, req, "SaveRuleHandler", &rule) {
		return
	}
	saved, err := r.engine.SaveRule(req.Context(), rule)
	if err != nil {
		r.fail(w, "SaveRuleHandler", err)
		return
	}
	r.write(w, "SaveRuleHandler", http.StatusOK, saved)
}

func (r *RulesHandler) DeactivateRuleHandler(w http.ResponseWriter, req *http.Request) {
	if err := r.engine.DeactivateRule(req.Context(), mux.Vars(req)["id"]); err != nil {
		r.fail(w, "DeactivateRuleHandler", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *RulesHandler) GetRulesetsHandler(w http.ResponseWriter, req *http.Request) {
	business := req.URL.Query().Get("businessId")
	if business == "" {
		http.Error(w, "businessId is required", http.StatusBadRequest)
		return
	}
	rulesets, err := r.engine.Rulesets(req.Context(), business)
	if err != nil {
		r.fail(w, "GetRulesetsHandler", err)
		return
	}
	if rulesets == nil {
		rulesets = []models.Ruleset{}
	}
	r.write(w, "GetRulesetsHandler", http.StatusOK, rulesets)
}

type RulesetResponse struct {
	models.Ruleset
	Rules []models.Rule `json:"rules"`
}

func (r *RulesHandler) GetRulesetHandler(w http.ResponseWriter, req *http.Request) {
	ruleset, rules, err := r.engine.Ruleset(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, "GetRulesetHandler", err)
		return
	}
	if rules == nil {
		rules = []models.Rule{}
	}
	r.write(w, "GetRulesetHandler", http.StatusOK, RulesetResponse{ruleset, rules})
}

func (r *RulesHandler) SaveRulesetHandler(w http.ResponseWriter, req *http.Request) {
	var ruleset models.Ruleset
	if !r.read(w, req, "SaveRulesetHandler", &ruleset) {
		return
	}
	saved, err := r.engine.SaveRuleset(req.Context(), ruleset)
	if err != nil {
		r.fail(w, "SaveRulesetHandler", err)
		return
	}
	r.write(w, "SaveRulesetHandler", http.StatusOK, saved)
}
