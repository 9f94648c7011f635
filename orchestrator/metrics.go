package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dqagent_turns_total", Help: "User turns processed, by routed intent.",
	}, []string{"intent"})

	rulesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dqagent_rules_created_total", Help: "Rules persisted after approval.",
	})
	rulesUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dqagent_rules_updated_total", Help: "Rule descriptions updated after approval.",
	})
	rulesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dqagent_rules_deleted_total", Help: "Rules deleted.",
	})

	generationRounds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dqagent_generation_rounds_total", Help: "Generate/validate rounds executed.",
	})
	generationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dqagent_generation_failures_total", Help: "Workflows abandoned after exhausting the generation retry bound.",
	})

	collaboratorRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dqagent_collaborator_retries_total", Help: "Automatic single retries of transient collaborator failures, by step.",
	}, []string{"step"})
)
