package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuizzesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizie_quizzes_generated_total",
		Help: "Quizzes successfully generated and stored.",
	})

	AttemptsScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizie_attempts_scored_total",
		Help: "Quiz attempts submitted and scored.",
	})

	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizie_rooms_created_total",
		Help: "Multiplayer rooms created.",
	})

	GenerationRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizie_generation_retries_total",
		Help: "Retried calls to the quiz generation LLM.",
	})
)
