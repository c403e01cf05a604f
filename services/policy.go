package services

import (
	"log"
	"os"
	"strconv"
	"time"
)

// TrustWeights define relative trust values per outcome (tunable via env)
type TrustWeights struct {
	CompleteClean int64 // completed session, low flag rate
	CompleteDirty int64 // completed session, flag rate above the dirty cutoff
	Draw          int64
	Abandoned     int64 // small negative: walking away costs a little
	Timeout       int64
}

var DefaultTrustWeights = TrustWeights{
	CompleteClean: 25,
	CompleteDirty: 5,
	Draw:          15,
	Abandoned:     -5,
	Timeout:       0,
}

// RevealThresholds list the trust score each side must clear per level.
// Index by level (bio=1, voice=2, photo=3); level 0 is always unlocked.
var DefaultRevealThresholds = [4]int64{0, 50, 150, 300}

// Policy holds every tunable the engine needs. Everything comes from env
// with sensible defaults so deployments can retune without a rebuild.
type Policy struct {
	Weights          TrustWeights
	RevealThresholds [4]int64

	// MaxTrustDelta caps a single session's delta below the smallest
	// threshold gap so one session can never jump a reveal level.
	MaxTrustDelta int64

	// DirtyFlagRate is the in-session flagged-message rate at or above which
	// a completion stops counting as trust-positive.
	DirtyFlagRate float64

	// ForfeitScore is what the non-offending player scores on a turn timeout.
	ForfeitScore int64

	ReadyTimeout  time.Duration
	TurnTimeout   time.Duration
	LivenessGrace time.Duration

	// FailMode is the verdict used when the classifier is unreachable:
	// "flagged" (default) or "blocked". Never "clean".
	FailMode string

	MessageRatePerMin int
	MessageBurst      int
}

// LoadPolicy reads the policy from the environment, falling back to defaults.
func LoadPolicy() Policy {
	p := Policy{
		Weights:           DefaultTrustWeights,
		RevealThresholds:  DefaultRevealThresholds,
		MaxTrustDelta:     40,
		DirtyFlagRate:     0.25,
		ForfeitScore:      25,
		ReadyTimeout:      120 * time.Second,
		TurnTimeout:       60 * time.Second,
		LivenessGrace:     45 * time.Second,
		FailMode:          "flagged",
		MessageRatePerMin: 30,
		MessageBurst:      10,
	}

	p.MaxTrustDelta = envInt64("TRUST_MAX_DELTA", p.MaxTrustDelta)
	p.ForfeitScore = envInt64("SESSION_FORFEIT_SCORE", p.ForfeitScore)
	p.Weights.CompleteClean = envInt64("TRUST_COMPLETE_CLEAN", p.Weights.CompleteClean)
	p.Weights.CompleteDirty = envInt64("TRUST_COMPLETE_DIRTY", p.Weights.CompleteDirty)
	p.Weights.Draw = envInt64("TRUST_DRAW", p.Weights.Draw)
	p.Weights.Abandoned = envInt64("TRUST_ABANDONED", p.Weights.Abandoned)
	p.Weights.Timeout = envInt64("TRUST_TIMEOUT", p.Weights.Timeout)

	p.RevealThresholds[1] = envInt64("REVEAL_THRESHOLD_BIO", p.RevealThresholds[1])
	p.RevealThresholds[2] = envInt64("REVEAL_THRESHOLD_VOICE", p.RevealThresholds[2])
	p.RevealThresholds[3] = envInt64("REVEAL_THRESHOLD_PHOTO", p.RevealThresholds[3])

	p.ReadyTimeout = envDuration("SESSION_READY_TIMEOUT", p.ReadyTimeout)
	p.TurnTimeout = envDuration("SESSION_TURN_TIMEOUT", p.TurnTimeout)
	p.LivenessGrace = envDuration("SESSION_LIVENESS_GRACE", p.LivenessGrace)

	if mode := os.Getenv("MODERATION_FAIL_MODE"); mode != "" {
		if mode == "flagged" || mode == "blocked" {
			p.FailMode = mode
		} else {
			log.Printf("⚠️  MODERATION_FAIL_MODE=%q ignored, must be flagged or blocked", mode)
		}
	}

	p.MessageRatePerMin = int(envInt64("CHAT_RATE_PER_MIN", int64(p.MessageRatePerMin)))
	p.MessageBurst = int(envInt64("CHAT_RATE_BURST", int64(p.MessageBurst)))

	return p
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("⚠️  %s=%q is not an integer, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("⚠️  %s=%q is not a duration, using default %s", key, v, fallback)
		return fallback
	}
	return d
}

// PairKey builds the canonical unordered key for two user ids.
func PairKey(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}
