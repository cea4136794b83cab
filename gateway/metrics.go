package gateway

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts command traffic and game outcomes.
type Metrics struct {
	Commands      *prometheus.CounterVec
	CommandErrors *prometheus.CounterVec
	GamesStarted  prometheus.Counter
	GamesFinished *prometheus.CounterVec
}

// NewMetrics builds the gateway's collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer in production.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tictacbot_commands_total",
				Help: "Total number of chat commands handled",
			},
			[]string{"command"},
		),
		CommandErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tictacbot_command_errors_total",
				Help: "Total number of commands that failed",
			},
			[]string{"command"},
		),
		GamesStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tictacbot_games_started_total",
				Help: "Total number of game sessions created",
			},
		),
		GamesFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tictacbot_games_finished_total",
				Help: "Total number of game sessions finished by outcome",
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Commands, m.CommandErrors, m.GamesStarted, m.GamesFinished)
	}
	return m
}
