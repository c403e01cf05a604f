package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionTransitions counts state machine transitions by target state.
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duomatch_session_transitions_total",
		Help: "Session state transitions by target state.",
	}, []string{"to"})

	// TurnsApplied counts successfully applied turns.
	TurnsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duomatch_turns_applied_total",
		Help: "Turns applied across all sessions.",
	})

	// TurnConflicts counts rejected turn submissions by reason.
	TurnConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duomatch_turn_conflicts_total",
		Help: "Turn submissions rejected by the sequence/state guard.",
	}, []string{"reason"})

	// OutcomeEmissions counts outcome events emitted (post-dedupe).
	OutcomeEmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duomatch_outcome_emissions_total",
		Help: "Outcome events emitted, by terminal state.",
	}, []string{"state"})

	// ModerationVerdicts counts classifier verdicts, including fail-open ones.
	ModerationVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duomatch_moderation_verdicts_total",
		Help: "Moderation verdicts by result and source (classifier or fail-open).",
	}, []string{"verdict", "source"})

	// RevealUnlocks counts ladder advances by new level.
	RevealUnlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duomatch_reveal_unlocks_total",
		Help: "Reveal level unlocks by level name.",
	}, []string{"level"})

	// RevealCASRetries counts compare-and-set conflicts during unlock evaluation.
	RevealCASRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duomatch_reveal_cas_retries_total",
		Help: "Reveal level compare-and-set conflicts that triggered re-evaluation.",
	})
)
