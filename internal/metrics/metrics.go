package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	InterestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_interests_total",
		Help: "Interest expressions processed, by outcome.",
	}, []string{"outcome"}) // expressed | duplicate | match

	PassesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verity_passes_total",
		Help: "Pass decisions recorded.",
	})

	MatchesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verity_matches_created_total",
		Help: "Matches created from mutual interest.",
	})

	RoomsProvisionedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verity_rooms_provisioned_total",
		Help: "Video rooms successfully provisioned.",
	})

	RoomProvisionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verity_room_provision_failures_total",
		Help: "Room provisioning attempts that exhausted retries.",
	})

	FeedbackSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_feedback_submitted_total",
		Help: "Feedback verdicts accepted, by verdict.",
	}, []string{"verdict"})

	ChatUnlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verity_chat_unlocks_total",
		Help: "Matches whose chat was unlocked by mutual yes.",
	})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_rate_limited_total",
		Help: "Actions denied by the rate limiter, by action.",
	}, []string{"action"})

	MessagesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verity_messages_sent_total",
		Help: "Chat messages persisted.",
	})

	FeedPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verity_feed_pages_total",
		Help: "Discovery feed pages served.",
	})
)

// Handler exposes the prometheus scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }
