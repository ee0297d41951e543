// Package metrics provides Prometheus metrics for the lounge integration.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label cardinality is bounded by the number of paired screens.

var (
	// ConnectAttemptsTotal counts control channel connect attempts by result.
	ConnectAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytlounge_connect_attempts_total",
		Help: "Total number of control channel connect attempts, by screen and result.",
	}, []string{"screen", "result"})

	// AuthRefreshTotal counts credential refresh attempts by result.
	AuthRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytlounge_auth_refresh_total",
		Help: "Total number of credential refresh attempts, by screen and result.",
	}, []string{"screen", "result"})

	// SupervisorRestartsTotal counts restarts of the keep-alive loop after a failure.
	SupervisorRestartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytlounge_supervisor_restarts_total",
		Help: "Total number of keep-alive loop restarts after an error, by screen.",
	}, []string{"screen"})

	// StateNotificationsTotal counts snapshots applied to the state cache.
	StateNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytlounge_state_notifications_total",
		Help: "Total number of playback notifications applied, by screen and kind (snapshot/empty).",
	}, []string{"screen", "kind"})

	// MetadataLookupsTotal counts metadata service lookups by result.
	MetadataLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytlounge_metadata_lookups_total",
		Help: "Total number of video metadata lookups, by result.",
	}, []string{"result"})

	// CommandsTotal counts commands relayed to screens.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytlounge_commands_total",
		Help: "Total number of commands relayed to screens, by screen, command and result.",
	}, []string{"screen", "command", "result"})

	// SupervisorPhase reports the current keep-alive phase (1 for the active phase, 0 otherwise).
	SupervisorPhase = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ytlounge_supervisor_phase",
		Help: "Current keep-alive phase, by screen and phase.",
	}, []string{"screen", "phase"})

	// ActivePlayers tracks the number of running entities.
	ActivePlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ytlounge_active_players",
		Help: "Current number of running media player entities.",
	})
)

// Result returns the result label for a boolean outcome and an error.
func Result(ok bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case ok:
		return "success"
	default:
		return "failure"
	}
}

// SetSupervisorPhase marks phase as active for screen and clears the others.
func SetSupervisorPhase(screen, phase string, all []string) {
	for _, p := range all {
		v := 0.0
		if p == phase {
			v = 1
		}
		SupervisorPhase.WithLabelValues(screen, p).Set(v)
	}
}

// ClearScreen removes the per-phase series of a screen that went away.
func ClearScreen(screen string, phases []string) {
	for _, p := range phases {
		SupervisorPhase.DeleteLabelValues(screen, p)
	}
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
