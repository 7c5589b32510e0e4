package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecosort_sessions_started_total",
		Help: "Number of game sessions started, by game kind.",
	}, []string{"game"})

	gamesFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecosort_games_finished_total",
		Help: "Number of game sessions that reached the results phase, by game kind.",
	}, []string{"game"})

	resultsPersistErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecosort_result_persist_errors_total",
		Help: "Number of failures to persist a finished game result.",
	})
)
