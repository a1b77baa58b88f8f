package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConversationsCreated counts conversations created
	ConversationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamePrefix,
			Name:      "conversations_created_total",
			Help:      "Total conversations created",
		},
	)

	// MessagesAppended counts messages appended to conversations
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamePrefix,
			Name:      "conversation_messages_total",
			Help:      "Total messages appended to conversations",
		},
		[]string{"role"},
	)

	// CompletionTokens counts tokens reported by the completion provider
	CompletionTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamePrefix,
			Name:      "completion_tokens_total",
			Help:      "Total tokens reported by the completion provider",
		},
		[]string{"model"},
	)

	// CompletionFailures counts failed send-message attempts
	CompletionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamePrefix,
			Name:      "completion_failures_total",
			Help:      "Total send-message attempts that failed after the user message was stored",
		},
	)

	// SessionMessages counts inbound activity recorded on WhatsApp sessions
	SessionMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamePrefix,
			Name:      "session_messages_total",
			Help:      "Total messages recorded on WhatsApp sessions",
		},
		[]string{"gateway_instance"},
	)
)

// OtherModel labels completions of models without a cost table entry
const OtherModel = "other"

// RecordCompletion records the token usage of one completion. The model name
// comes from the caller, so only priced models keep their own label.
func RecordCompletion(model string, priced bool, tokens int) {
	if !priced {
		model = OtherModel
	}
	CompletionTokens.WithLabelValues(model).Add(float64(tokens))
}
