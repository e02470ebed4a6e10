package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfperdi/parishliturgyplanner/internal/event"
)

func TestConsumer_CountsDomainEvents(t *testing.T) {
	ctx := context.Background()
	c := NewConsumer()

	before := testutil.ToFloat64(stepTransitions.WithLabelValues("3", "error"))
	require.NoError(t, c.HandleEvent(ctx, event.NewStepStatusChanged(event.StepStatusPayload{Step: 3, From: "active", To: "error"})))
	assert.Equal(t, before+1, testutil.ToFloat64(stepTransitions.WithLabelValues("3", "error")))

	require.NoError(t, c.HandleEvent(ctx, event.NewApprovalsFetched(event.ApprovalsFetchedPayload{Period: "2025-03", Pending: 4})))
	assert.Equal(t, float64(4), testutil.ToFloat64(pendingApprovals.WithLabelValues("2025-03")))

	bulk := testutil.ToFloat64(approvalDecisions.WithLabelValues("bulk_approved"))
	require.NoError(t, c.HandleEvent(ctx, event.NewApprovalDecided(event.ApprovalDecidedPayload{Period: "2025-03", DataIndex: -1, Decision: "bulk_approved", Count: 3})))
	assert.Equal(t, bulk+3, testutil.ToFloat64(approvalDecisions.WithLabelValues("bulk_approved")))
}

func TestHandler_ServesMetrics(t *testing.T) {
	SetSessions(2)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "liturgy_planner_sessions 2"))
}
