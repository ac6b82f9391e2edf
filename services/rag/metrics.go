// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// modelCallsTotal counts model capability invocations by outcome.
	// Labels: status (ok, error)
	modelCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lectern",
		Subsystem: "rag",
		Name:      "model_calls_total",
		Help:      "Total model capability calls by status",
	}, []string{"status"})

	// toolExecutionsTotal counts tool executions by tool name and outcome.
	// Labels: tool, status (ok, error)
	toolExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lectern",
		Subsystem: "rag",
		Name:      "tool_executions_total",
		Help:      "Total tool executions by tool name and status",
	}, []string{"tool", "status"})

	// fallbacksTotal counts degraded responses by fallback kind.
	// Labels: kind (first_round, partial, exhausted)
	fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lectern",
		Subsystem: "rag",
		Name:      "fallbacks_total",
		Help:      "Total degraded fallback responses by kind",
	}, []string{"kind"})

	// queryRounds observes how many tool-bearing rounds each query used.
	queryRounds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lectern",
		Subsystem: "rag",
		Name:      "query_rounds",
		Help:      "Tool-bearing rounds consumed per query",
		Buckets:   []float64{0, 1, 2, 3},
	})

	// queryDurationSeconds measures end-to-end generation latency.
	queryDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lectern",
		Subsystem: "rag",
		Name:      "query_duration_seconds",
		Help:      "End-to-end generation latency including tool executions",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
)
