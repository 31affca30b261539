package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	handsStartedCounter        prometheus.Counter
	handsEndedCounter          prometheus.Counter
	actionsRejectedCounter     prometheus.Counter
	evaluatorFailureCounter    prometheus.Counter
	botActionsCounter          prometheus.Counter
	autoFoldCounter            prometheus.Counter
	tournamentsFinishedCounter prometheus.Counter
	activeTablesGauge          prometheus.Gauge
	connectedSessionsGauge     prometheus.Gauge
}

func (m *metrics) HandStarted() {
	m.handsStartedCounter.Inc()
}

func (m *metrics) HandEnded() {
	m.handsEndedCounter.Inc()
}

func (m *metrics) ActionRejected() {
	m.actionsRejectedCounter.Inc()
}

func (m *metrics) EvaluatorFailure() {
	m.evaluatorFailureCounter.Inc()
}

func (m *metrics) BotActed() {
	m.botActionsCounter.Inc()
}

func (m *metrics) AutoFolded() {
	m.autoFoldCounter.Inc()
}

func (m *metrics) TournamentFinished() {
	m.tournamentsFinishedCounter.Inc()
}

func (m *metrics) SetActiveTables(count int) {
	m.activeTablesGauge.Set(float64(count))
}

func (m *metrics) SessionConnected() {
	m.connectedSessionsGauge.Inc()
}

func (m *metrics) SessionDisconnected() {
	m.connectedSessionsGauge.Dec()
}

var Metrics = &metrics{
	handsStartedCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "hands_started_total",
		Help: "Total number of hands dealt",
	}),
	handsEndedCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "hands_ended_total",
		Help: "Total number of hands settled",
	}),
	actionsRejectedCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "actions_rejected_total",
		Help: "Total number of player actions rejected by the engine",
	}),
	evaluatorFailureCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "evaluator_failures_total",
		Help: "Total number of showdowns settled by the evaluator fallback",
	}),
	botActionsCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_actions_total",
		Help: "Total number of bot decisions applied",
	}),
	autoFoldCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "away_auto_folds_total",
		Help: "Total number of away players auto folded",
	}),
	tournamentsFinishedCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "tournaments_finished_total",
		Help: "Total number of tournaments paid out",
	}),
	activeTablesGauge: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "active_tables_count",
		Help: "Count of tables in the registry",
	}),
	connectedSessionsGauge: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "connected_sessions_count",
		Help: "Count of live websocket sessions",
	}),
}
