package lotteryhandlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	lotteryservice "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/application"
	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	lotteryqueue "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/queue"
	lotteryreports "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/reports"
	lotterytime "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/time_utils"
	"github.com/Black-And-White-Club/numbers-lottery/pkg/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var _ HTTPHandlers = (*LotteryHTTPHandlers)(nil)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// JobLister reports the draw jobs queued for a lottery.
type JobLister interface {
	GetScheduledJobs(ctx context.Context, lotteryID uuid.UUID) ([]lotteryqueue.JobInfo, error)
}

// LotteryHTTPHandlers serves the lottery REST surface.
type LotteryHTTPHandlers struct {
	service lotteryservice.Service
	jobs    JobLister
	logger  *slog.Logger
	times   *lotterytime.Parser
	now     func() time.Time
}

// NewLotteryHTTPHandlers creates the HTTP handlers. jobs is nil when draws
// are not scheduled automatically.
func NewLotteryHTTPHandlers(service lotteryservice.Service, jobs JobLister, logger *slog.Logger, times *lotterytime.Parser) *LotteryHTTPHandlers {
	if times == nil {
		times = lotterytime.NewParser()
	}
	return &LotteryHTTPHandlers{
		service: service,
		jobs:    jobs,
		logger:  logger,
		times:   times,
		now:     time.Now,
	}
}

type scheduleRequest struct {
	EntryFee lotterydomain.Amount `json:"entry_fee"`
	DrawTime string               `json:"draw_time"`
	Timezone string               `json:"timezone"`
}

type depositRequest struct {
	Amount lotterydomain.Amount `json:"amount"`
}

type submitRequest struct {
	Number int                  `json:"number"`
	Stake  lotterydomain.Amount `json:"stake"`
}

type stateResponse struct {
	Phase     lotterydomain.Phase `json:"phase"`
	PhaseName string              `json:"phase_name"`
}

type entriesCountResponse struct {
	Number int    `json:"number"`
	Count  uint64 `json:"count"`
}

type winningNumberResponse struct {
	WinningNumber uint8 `json:"winning_number"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *LotteryHTTPHandlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if lotterydomain.IsRejection(err) {
			h.writeError(w, r, err)
		} else {
			writeJSONError(w, http.StatusBadRequest, string(lotterydomain.CodeInvalidArgument), "invalid request body")
		}
		return false
	}
	return true
}

func (h *LotteryHTTPHandlers) lotteryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, string(lotterydomain.CodeInvalidArgument), "invalid lottery id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *LotteryHTTPHandlers) caller(w http.ResponseWriter, r *http.Request) (lotterydomain.Address, bool) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing caller")
	}
	return caller, ok
}

func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}

func (h *LotteryHTTPHandlers) drawTime(w http.ResponseWriter, r *http.Request, req scheduleRequest) (time.Time, bool) {
	t, err := h.times.Parse(req.DrawTime, req.Timezone, h.now())
	if err != nil {
		if lotterydomain.IsRejection(err) {
			h.writeError(w, r, err)
		} else {
			writeJSONError(w, http.StatusBadRequest, string(lotterydomain.CodeInvalidArgument), err.Error())
		}
		return time.Time{}, false
	}
	return t, true
}

// CreateLottery constructs a lottery owned by the caller.
func (h *LotteryHTTPHandlers) CreateLottery(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req scheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	drawTime, ok := h.drawTime(w, r, req)
	if !ok {
		return
	}
	view, err := h.service.CreateLottery(r.Context(), lotteryservice.CreateLotteryRequest{
		Owner:    caller,
		EntryFee: req.EntryFee,
		DrawTime: drawTime,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *LotteryHTTPHandlers) ListLotteries(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListLotteries(r.Context(), limitParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *LotteryHTTPHandlers) GetLottery(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetLottery(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *LotteryHTTPHandlers) GetState(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	phase, err := h.service.GetState(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{Phase: phase, PhaseName: phase.String()})
}

// EntriesCount reports how many entries the current round holds on a
// number. Numbers outside the valid range report zero.
func (h *LotteryHTTPHandlers) EntriesCount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, string(lotterydomain.CodeInvalidArgument), "invalid number")
		return
	}
	count, err := h.service.EntriesCount(r.Context(), id, number)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entriesCountResponse{Number: number, Count: count})
}

func (h *LotteryHTTPHandlers) WinningNumber(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	winning, err := h.service.WinningNumber(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, winningNumberResponse{WinningNumber: winning})
}

func (h *LotteryHTTPHandlers) ListDraws(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	draws, err := h.service.ListDraws(r.Context(), id, limitParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draws)
}

func (h *LotteryHTTPHandlers) ListTransfers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	transfers, err := h.service.ListTransfers(r.Context(), id, limitParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transfers)
}

func (h *LotteryHTTPHandlers) Deposit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req depositRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.service.Deposit(r.Context(), id, caller, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *LotteryHTTPHandlers) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	view, err := h.service.Withdraw(r.Context(), id, caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *LotteryHTTPHandlers) SubmitNumber(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.service.SubmitNumber(r.Context(), id, caller, req.Number, req.Stake)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *LotteryHTTPHandlers) DrawNumber(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	view, err := h.service.DrawNumber(r.Context(), id, caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *LotteryHTTPHandlers) ScheduleNextDraw(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req scheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	drawTime, ok := h.drawTime(w, r, req)
	if !ok {
		return
	}
	view, err := h.service.ScheduleNextDraw(r.Context(), id, caller, req.EntryFee, drawTime)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SettlePendingPayouts retries payouts a wallet refused during a draw.
func (h *LotteryHTTPHandlers) SettlePendingPayouts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	view, err := h.service.SettlePendingPayouts(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListJobs lists the lottery's draw jobs on the queue.
func (h *LotteryHTTPHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	if h.jobs == nil {
		writeJSONError(w, http.StatusNotFound, "AUTO_DRAW_DISABLED", "draws are not scheduled automatically")
		return
	}
	jobs, err := h.jobs.GetScheduledJobs(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *LotteryHTTPHandlers) writeBinary(w http.ResponseWriter, r *http.Request, contentType string, data []byte, err error) {
	if errors.Is(err, lotteryreports.ErrNoData) {
		writeJSONError(w, http.StatusNotFound, "NO_DATA", err.Error())
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// EntriesChart serves a PNG of the live round's entries per number.
func (h *LotteryHTTPHandlers) EntriesChart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetLottery(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	png, err := lotteryreports.EntriesChart(view.EntriesCounts)
	h.writeBinary(w, r, "image/png", png, err)
}

// WinningNumbersChart serves a PNG of winning number frequencies.
func (h *LotteryHTTPHandlers) WinningNumbersChart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	draws, err := h.service.ListDraws(r.Context(), id, maxListLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	png, err := lotteryreports.WinningNumbersChart(draws)
	h.writeBinary(w, r, "image/png", png, err)
}

// Report serves an XLSX workbook of the lottery's history.
func (h *LotteryHTTPHandlers) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lotteryID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetLottery(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	draws, err := h.service.ListDraws(r.Context(), id, maxListLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	transfers, err := h.service.ListTransfers(r.Context(), id, maxListLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := lotteryreports.ExportXLSX(*view, draws, transfers)
	if err == nil {
		w.Header().Set("Content-Disposition", `attachment; filename="lottery-`+id.String()+`.xlsx"`)
	}
	h.writeBinary(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data, err)
}

// RouteConfig configures the middleware stack in front of the routes.
type RouteConfig struct {
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
}

// Routes mounts the lottery API under /api/lotteries. Reads are public;
// writes need a bearer token whose subject is the caller address. Creating
// lotteries, opening rounds and operating the payout queue also need the
// operator role.
func (h *LotteryHTTPHandlers) Routes(router chi.Router, tokens jwt.Service, cfg RouteConfig) {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}
	router.Route("/api/lotteries", func(r chi.Router) {
		r.Use(CORSMiddleware(cfg.AllowedOrigins))
		r.Use(RateLimitMiddleware(NewIPRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)))

		r.Get("/", h.ListLotteries)
		r.Get("/{id}", h.GetLottery)
		r.Get("/{id}/state", h.GetState)
		r.Get("/{id}/entries/{number}", h.EntriesCount)
		r.Get("/{id}/winning-number", h.WinningNumber)
		r.Get("/{id}/draws", h.ListDraws)
		r.Get("/{id}/transfers", h.ListTransfers)
		r.Get("/{id}/charts/entries.png", h.EntriesChart)
		r.Get("/{id}/charts/winning-numbers.png", h.WinningNumbersChart)
		r.Get("/{id}/report.xlsx", h.Report)

		r.Group(func(r chi.Router) {
			r.Use(CallerMiddleware(tokens))
			r.Post("/{id}/deposit", h.Deposit)
			r.Post("/{id}/withdraw", h.Withdraw)
			r.Post("/{id}/entries", h.SubmitNumber)
			r.Post("/{id}/draw", h.DrawNumber)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(jwt.RoleOperator))
				r.Post("/", h.CreateLottery)
				r.Post("/{id}/schedule", h.ScheduleNextDraw)
				r.Post("/{id}/payouts/settle", h.SettlePendingPayouts)
				r.Get("/{id}/jobs", h.ListJobs)
			})
		})
	})
}
