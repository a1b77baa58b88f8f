package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCompletion(t *testing.T) {
	priced := testutil.ToFloat64(CompletionTokens.WithLabelValues("gpt-4"))
	other := testutil.ToFloat64(CompletionTokens.WithLabelValues(OtherModel))

	RecordCompletion("gpt-4", true, 10)
	RecordCompletion("made-up-model-1", false, 3)
	RecordCompletion("made-up-model-2", false, 4)

	assert.Equal(t, priced+10, testutil.ToFloat64(CompletionTokens.WithLabelValues("gpt-4")))
	assert.Equal(t, other+7, testutil.ToFloat64(CompletionTokens.WithLabelValues(OtherModel)))

	count := testutil.CollectAndCount(CompletionTokens, metricNamePrefix+"_completion_tokens_total")
	assert.Equal(t, 2, count, "unpriced models must not add label values")
}

func TestSessionMessagesLabel(t *testing.T) {
	before := testutil.ToFloat64(SessionMessages.WithLabelValues("gateway-1"))
	SessionMessages.With(map[string]string{"gateway_instance": "gateway-1"}).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SessionMessages.WithLabelValues("gateway-1")))
}
