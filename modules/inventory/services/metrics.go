package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inventorySubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "gateway",
		Name:      "submissions_total",
		Help:      "Total number of product change submissions broken down by role and outcome.",
	}, []string{"role", "outcome"})

	inventorySubmitRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "gateway",
		Name:      "submit_retries_total",
		Help:      "Total number of editor submissions retried after a pending-index collision.",
	})

	inventoryDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "approvals",
		Name:      "decisions_total",
		Help:      "Total number of resolved change requests broken down by kind and decision.",
	}, []string{"kind", "decision"})

	inventoryAuditFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "audit",
		Name:      "write_failures_total",
		Help:      "Total number of best-effort audit writes that failed broken down by operation.",
	}, []string{"op"})

	inventoryWriteConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Total number of inventory write conflicts broken down by kind.",
	}, []string{"kind"})

	inventoryRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "activity",
		Name:      "retries_total",
		Help:      "Total number of failed activity entries retried broken down by result.",
	}, []string{"result"})
)

func recordSubmission(admin bool, outcome Outcome) {
	role := "editor"
	if admin {
		role = "admin"
	}
	inventorySubmissions.WithLabelValues(role, string(outcome)).Inc()
}

func recordDecision(kind, decision string) {
	inventoryDecisions.WithLabelValues(kind, decision).Inc()
}

func recordAuditFailure(op string) {
	inventoryAuditFailures.WithLabelValues(op).Inc()
}

func recordWriteConflict(kind string) {
	if kind == "" {
		kind = "other"
	}
	inventoryWriteConflicts.WithLabelValues(kind).Inc()
}

func recordRetry(ok bool) {
	result := "failed"
	if ok {
		result = "success"
	}
	inventoryRetries.WithLabelValues(result).Inc()
}
