// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "adpolicy_circuit_breaker_state",
		Help: "Rule quarantine breaker state, 1 for the active state and 0 otherwise",
	}, []string{"component", "state"})

	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adpolicy_circuit_breaker_trips_total",
		Help: "Times a rule quarantine breaker opened, by reason",
	}, []string{"component", "reason"})
)

var breakerStates = [...]string{"closed", "half_open", "open"}

// SetCircuitBreakerState marks state as the active breaker state of component.
func SetCircuitBreakerState(component, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		circuitBreakerState.WithLabelValues(component, s).Set(v)
	}
}

// RecordCircuitBreakerTrip counts a transition to open.
func RecordCircuitBreakerTrip(component, reason string) {
	circuitBreakerTrips.WithLabelValues(component, normalizeTripReasonLabel(reason)).Inc()
}

func normalizeTripReasonLabel(reason string) string {
	switch reason {
	case "threshold_exceeded", "half_open_failure":
		return reason
	default:
		return "unknown"
	}
}
