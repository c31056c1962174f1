package lotteryhandlers

import (
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Handlers defines the interface for lottery event handlers.
type Handlers interface {
	// HandleDrawRequested settles a round when its scheduled draw fires.
	HandleDrawRequested(msg *message.Message) ([]*message.Message, error)
}

// HTTPHandlers defines the lottery HTTP endpoints.
type HTTPHandlers interface {
	CreateLottery(w http.ResponseWriter, r *http.Request)
	ListLotteries(w http.ResponseWriter, r *http.Request)
	GetLottery(w http.ResponseWriter, r *http.Request)
	GetState(w http.ResponseWriter, r *http.Request)
	EntriesCount(w http.ResponseWriter, r *http.Request)
	WinningNumber(w http.ResponseWriter, r *http.Request)
	ListDraws(w http.ResponseWriter, r *http.Request)
	ListTransfers(w http.ResponseWriter, r *http.Request)
	Deposit(w http.ResponseWriter, r *http.Request)
	Withdraw(w http.ResponseWriter, r *http.Request)
	SubmitNumber(w http.ResponseWriter, r *http.Request)
	DrawNumber(w http.ResponseWriter, r *http.Request)
	ScheduleNextDraw(w http.ResponseWriter, r *http.Request)
	SettlePendingPayouts(w http.ResponseWriter, r *http.Request)
	ListJobs(w http.ResponseWriter, r *http.Request)
	EntriesChart(w http.ResponseWriter, r *http.Request)
	WinningNumbersChart(w http.ResponseWriter, r *http.Request)
	Report(w http.ResponseWriter, r *http.Request)
}
