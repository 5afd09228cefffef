// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics exposes Prometheus instrumentation for the policy engine.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	policyDecisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adpolicy_decision_total",
		Help: "Total number of playback policy decisions by operation, playback mode, and decision source",
	}, []string{"operation", "mode", "source"})

	ruleFaultTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adpolicy_rule_fault_total",
		Help: "Total number of custom rule faults recovered by the engine, by operation and fault kind",
	}, []string{"operation", "kind"})

	notificationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adpolicy_notification_total",
		Help: "Total number of skip/seek completion notifications received from the host",
	}, []string{"kind"})

	modeChangeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adpolicy_mode_changes_total",
		Help: "Total number of playback mode changes by new mode",
	}, []string{"mode"})
)

// RecordPolicyDecision records one answered query.
func RecordPolicyDecision(operation, mode, source string) {
	policyDecisionTotal.WithLabelValues(
		normalizeOperationLabel(operation),
		normalizeModeLabel(mode),
		normalizeSourceLabel(source),
	).Inc()
}

// RecordRuleFault records a recovered custom rule failure.
func RecordRuleFault(operation, kind string) {
	ruleFaultTotal.WithLabelValues(
		normalizeOperationLabel(operation),
		normalizeFaultKindLabel(kind),
	).Inc()
}

// RecordNotification records a did_skip / did_seek notification.
func RecordNotification(kind string) {
	switch k := strings.ToLower(strings.TrimSpace(kind)); k {
	case "did_skip", "did_seek":
		notificationTotal.WithLabelValues(k).Inc()
	default:
		notificationTotal.WithLabelValues("unknown").Inc()
	}
}

// RecordModeChange records a playback mode transition.
func RecordModeChange(mode string) {
	modeChangeTotal.WithLabelValues(normalizeModeLabel(mode)).Inc()
}

func normalizeOperationLabel(op string) string {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "can_stop", "can_pause", "can_skip", "will_seek_to", "can_change_volume",
		"can_resize", "can_resize_creative", "can_click_through":
		return strings.ToLower(strings.TrimSpace(op))
	default:
		return "unknown"
	}
}

func normalizeModeLabel(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "live", "vod", "start_over":
		return strings.ToLower(strings.TrimSpace(mode))
	default:
		return "unknown"
	}
}

func normalizeSourceLabel(source string) string {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "default", "custom", "fallback", "short_circuit", "bookkeeping", "quarantined":
		return strings.ToLower(strings.TrimSpace(source))
	default:
		return "unknown"
	}
}

func normalizeFaultKindLabel(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "error", "panic", "invalid":
		return strings.ToLower(strings.TrimSpace(kind))
	default:
		return "unknown"
	}
}
