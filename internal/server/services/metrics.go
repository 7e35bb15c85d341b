package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts authentication outcomes. A nil *Metrics records nothing.
type Metrics struct {
	logins         *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	revocations    prometheus.Counter
	authFailures   *prometheus.CounterVec
	recoveryEvents *prometheus.CounterVec
}

// NewMetrics registers the auth counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_logins_total",
			Help: "Login attempts by outcome kind.",
		}, []string{"result"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_refreshes_total",
			Help: "Refresh attempts by outcome kind.",
		}, []string{"result"}),
		revocations: f.NewCounter(prometheus.CounterOpts{
			Name: "gophauth_sessions_revoked_total",
			Help: "Sessions revoked by login, refresh or logout.",
		}),
		authFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_authentication_failures_total",
			Help: "Rejected bearer tokens by error kind.",
		}, []string{"kind"}),
		recoveryEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_recovery_events_total",
			Help: "Verification and password reset events.",
		}, []string{"event"}),
	}
}

func (m *Metrics) login(result string) {
	if m != nil {
		m.logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) refresh(result string) {
	if m != nil {
		m.refreshes.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) revoked() {
	if m != nil {
		m.revocations.Inc()
	}
}

func (m *Metrics) authFailure(kind string) {
	if m != nil {
		m.authFailures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) recovery(event string) {
	if m != nil {
		m.recoveryEvents.WithLabelValues(event).Inc()
	}
}
