package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeRotated         = "rotated"
	outcomeMissing         = "missing"
	outcomeInvalid         = "invalid"
	outcomeExpired         = "expired"
	outcomeUnknownIdentity = "unknown_identity"
	outcomeReuse           = "reuse"
	outcomeError           = "error"
)

var (
	issuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_credential_pairs_issued_total",
		Help: "Total number of access/refresh pairs issued.",
	})

	rotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_refresh_rotations_total",
			Help: "Refresh token rotation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	revocationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_revocations_total",
		Help: "Total number of logouts that cleared a stored refresh token.",
	})
)
