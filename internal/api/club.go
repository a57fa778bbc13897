package club

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interf "github.com/glkeru/vipclub/internal/interfaces"
	model "github.com/glkeru/vipclub/internal/models"
	services "github.com/glkeru/vipclub/internal/services"
)

type ClubHandler struct {
	router  *mux.Router
	credit  *services.CreditService
	points  *services.PointsService
	cycle   *services.CycleService
	config  interf.ConfigStorage
	winners interf.WinnerStorage
	logger  *zap.Logger
}

func NewHandler(credit *services.CreditService, points *services.PointsService, cycle *services.CycleService,
	config interf.ConfigStorage, winners interf.WinnerStorage, logger *zap.Logger) *ClubHandler {
	router := mux.NewRouter()
	router.Use(MiddlewareLog())
	handler := &ClubHandler{router, credit, points, cycle, config, winners, logger}

	// админка VIP кредитов
	router.HandleFunc("/admin/credit", handler.AssignHandler).Methods(http.MethodPost)
	router.HandleFunc("/admin/credit", handler.ListCreditHandler).Methods(http.MethodGet)
	router.HandleFunc("/admin/credit/{user}/reset", handler.ResetHandler).Methods(http.MethodPost)
	router.HandleFunc("/admin/credit/{user}/adjust", handler.AdjustHandler).Methods(http.MethodPost)
	router.HandleFunc("/admin/credit/{user}/duedate", handler.DueDateHandler).Methods(http.MethodPost)
	router.HandleFunc("/admin/credit/{user}/deactivate", handler.DeactivateHandler).Methods(http.MethodPost)
	router.HandleFunc("/admin/cycle", handler.RunCycleHandler).Methods(http.MethodPost)
	router.HandleFunc("/admin/config", handler.GetConfigHandler).Methods(http.MethodGet)
	router.HandleFunc("/admin/config", handler.UpdateConfigHandler).Methods(http.MethodPost)

	// витрина
	router.HandleFunc("/credit/{user}", handler.GetCreditHandler).Methods(http.MethodGet)
	router.HandleFunc("/credit/{user}/transactions", handler.TransactionsHandler).Methods(http.MethodGet)
	router.HandleFunc("/points/{user}", handler.GetPointsHandler).Methods(http.MethodGet)
	router.HandleFunc("/points/{user}/history", handler.HistoryHandler).Methods(http.MethodGet)
	router.HandleFunc("/leaderboard", handler.LeaderboardHandler).Methods(http.MethodGet)
	router.HandleFunc("/winners/{year}/{month}", handler.WinnersHandler).Methods(http.MethodGet)

	return handler
}

func (h *ClubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *ClubHandler) Log(msg string, service string, err error) {
	h.logger.Error(msg,
		zap.String("service", service),
		zap.Error(err),
	)
}

// Коды ответов по ошибкам бизнес-логики
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidDuePolicy),
		errors.Is(err, model.ErrInvalidAdjustment):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrInsufficientCredit),
		errors.Is(err, model.ErrAccountInactive):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrConcurrentModification),
		errors.Is(err, model.ErrCycleAlreadyRun):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *ClubHandler) respond(w http.ResponseWriter, payload any, service string) {
	j, err := json.Marshal(payload)
	if err != nil {
		h.Log("Marshal", service, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(j)
}

func (h *ClubHandler) decode(w http.ResponseWriter, req *http.Request, dst any, service string) bool {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		h.Log("Get request body", service, err)
		http.Error(w, "Body is empty", http.StatusBadRequest)
		return false
	}
	defer req.Body.Close()
	err = json.Unmarshal(body, dst)
	if err != nil {
		h.Log("Unmarshal", service, err)
		http.Error(w, "Body is not correct", http.StatusBadRequest)
		return false
	}
	return true
}

type AssignRequest struct {
	User       string          `json:"user"`
	Limit      decimal.Decimal `json:"limit"`
	AssignedBy string          `json:"assignedBy"`
	Notes      string          `json:"notes"`
}

// Назначение VIP кредита
func (h *ClubHandler) AssignHandler(w http.ResponseWriter, req *http.Request) {
	in := &AssignRequest{}
	if !h.decode(w, req, in, "AssignHandler") {
		return
	}
	if in.User == "" {
		http.Error(w, "user field is required", http.StatusBadRequest)
		return
	}
	acc, err := h.credit.Assign(req.Context(), in.User, in.Limit, in.AssignedBy, in.Notes)
	if err != nil {
		h.Log("Assign", "AssignHandler", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.respond(w, acc, "AssignHandler")
}

// Список VIP счетов
func (h *ClubHandler) ListCreditHandler(w http.ResponseWriter, req *http.Request) {
	accs, err := h.credit.List(req.Context())
	if err != nil {
		h.Log("DB get", "ListCreditHandler", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.respond(w, accs, "ListCreditHandler")
}

// Ручной сброс лимита
func (h *ClubHandler) ResetHandler(w http.ResponseWriter, req *http.Request) {
	user := mux.Vars(req)["user"]
	acc, err := h.credit.Reset(req.Context(), user)
	if err != nil {
		h.Log("Reset", "ResetHandler", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.respond(w, acc, "ResetHandler")
}

type AdjustRequest struct {
	Delta       decimal.Decimal `json:"delta"`
	Description string          `json:"description"`
}

// Корректировка задолженности
func (h *ClubHandler) AdjustHandler(w http.ResponseWriter, req *http.Request) {
	user := mux.Vars(req)["user"]
	in := &AdjustRequest{}
	if !h.decode(w, req, in, "AdjustHandler") {
		return
	}
	acc, err := h.credit.Adjust(req.Context(), user, in.Delta, in.Description)
	if err != nil {
		h.Log("Adjust", "AdjustHandler", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.respond(w, acc, "AdjustHandler")
}

type DueDateRequest struct {
	Policy string `json:"policy"`
}

// Политика даты платежа
func (h *ClubHandler) DueDateHandler(w http.ResponseWriter, req *http.Request) {
	user := mux.Vars(req)["user"]
	in := &DueDateRequest{}
	if !h.decode(w, req, in, "DueDateHandler") {
		return
	}
	acc, err := h.credit.SetDueDate(req.Context(), user, in.Policy)
	if err != nil {
		h.Log("SetDueDate", "DueDateHandler", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.respond(w, acc, "DueDateHandler")
}

// Деактивация счета
func (h *ClubHandler) DeactivateHandler(w http.ResponseWriter, req *http.Request) {
	user := mux.Vars(req)["user"]
	acc, err := h.credit.Deactivate(req.Context(), user)
	if err != nil {
		h.Log("Deactivate", "DeactivateHandler", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.respond(w, acc, "DeactivateHandler")
}

type RunCycleRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Ручной запуск месячного цикла
func (h *ClubHandler) RunCycleHandler(w http.ResponseWriter, req *http.Request) {
	in := &RunCycleRequest{}
	if !h.decode(w, req, in, "RunCycleHandler") {
		return
	}
	if in.Month < 1 || in.Month > 12 || in.Year < 2000 {
		http.Error(w, "month/year is not correct", http.StatusBadRequest)
		return
	}
	result, err := h.cycle.RunCycle(req.Context(), in.Month, in.Year)
	if err != nil {
		h.Log("RunCycle", "RunCycleHandler", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.respond(w, result, "RunCycleHandler")
}

// Настройки клуба
func (h *ClubHandler) GetConfigHandler(w http.ResponseWriter, req *http.Request) {
	cfg, err := h.config.Get(req.Context())
	if err != nil {
		h.Log("DB get", "GetConfigHandler", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.respond(w, cfg, "GetConfigHandler")
}

func (h *ClubHandler) UpdateConfigHandler(w http.ResponseWriter, req *http.Request) {
	cfg := &model.ClubConfig{}
	if !h.decode(w, req, cfg, "UpdateConfigHandler") {
		return
	}
	err := h.config.Update(req.Context(), *cfg)
	if err != nil {
		h.Log("Update", "UpdateConfigHandler", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Кредитный счет
func (h *ClubHandler) GetCreditHandler(w http.ResponseWriter, req *http.Request) {
	user := mux.Vars(req)["user"]
	acc, err := h.credit.Get(req.Context(), user)
	if err != nil {
		h.Log("DB get", "GetCreditHandler", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.respond(w, acc, "GetCreditHandler")
}

// Журнал транзакций
func (h *ClubHandler) TransactionsHandler(w http.ResponseWriter, req *http.Request) {
	user := mux.Vars(req)["user"]
	tnxs, err := h.credit.Transactions(req.Context(), user)
	if err != nil {
		h.Log("DB get", "TransactionsHandler", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.respond(w, tnxs, "TransactionsHandler")
}

// Счет баллов
func (h *ClubHandler) GetPointsHandler(w http.ResponseWriter, req *http.Request) {
	user := mux.Vars(req)["user"]
	acc, err := h.points.Get(req.Context(), user)
	if err != nil {
		h.Log("DB get", "GetPointsHandler", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.respond(w, acc, "GetPointsHandler")
}

// История начислений
func (h *ClubHandler) HistoryHandler(w http.ResponseWriter, req *http.Request) {
	user := mux.Vars(req)["user"]
	entries, err := h.points.History(req.Context(), user)
	if err != nil {
		h.Log("DB get", "HistoryHandler", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.respond(w, entries, "HistoryHandler")
}

// Рейтинг текущего месяца
func (h *ClubHandler) LeaderboardHandler(w http.ResponseWriter, req *http.Request) {
	limit := 10
	if q := req.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			http.Error(w, "limit is not correct", http.StatusBadRequest)
			return
		}
		limit = n
	}
	accounts, err := h.points.Leaderboard(req.Context(), limit)
	if err != nil {
		h.Log("Leaderboard", "LeaderboardHandler", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.respond(w, accounts, "LeaderboardHandler")
}

// Победители месяца
func (h *ClubHandler) WinnersHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		http.Error(w, "year is not correct", http.StatusBadRequest)
		return
	}
	month, err := strconv.Atoi(vars["month"])
	if err != nil || month < 1 || month > 12 {
		http.Error(w, "month is not correct", http.StatusBadRequest)
		return
	}
	winners, err := h.winners.List(req.Context(), month, year)
	if err != nil {
		h.Log("DB get", "WinnersHandler", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.respond(w, winners, "WinnersHandler")
}
