package service

import (
	"context"
	"testing"
	"time"

	"gatepass/internal/models"
	"gatepass/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequestService(env *testEnv) *RequestService {
	svc := NewRequestService(env.db, env.users, env.requests)
	tick := t0
	svc.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	return svc
}

func countRequests(t *testing.T, env *testEnv, username string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(&models.Request{}).Where("username = ?", username).Count(&n).Error)
	return n
}

func TestSubmit_RequiresFields(t *testing.T) {
	env := newTestEnv(t)
	svc := newRequestService(env)

	for _, in := range []SubmitRequestInput{
		{RequestType: "out", Purpose: "p"},
		{Username: "alice", Purpose: "p"},
		{Username: "alice", RequestType: "out", Purpose: "  "},
	} {
		_, err := svc.Submit(context.Background(), in)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	}
	assert.Zero(t, countRequests(t, env, "alice"))
}

func TestSubmit_DefaultsRoleFromUser(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "vera", "visitor", "in", "")
	svc := newRequestService(env)

	res, err := svc.Submit(context.Background(), SubmitRequestInput{Username: "vera", RequestType: "out", Purpose: "leave"})
	require.NoError(t, err)
	assert.Equal(t, "Request submitted successfully", res.Message)
	assert.Equal(t, "visitor", res.Request.Role)
	assert.Equal(t, models.RequestStatusPending, res.Request.Status)
	assert.NotZero(t, res.Request.ID)

	res, err = svc.Submit(context.Background(), SubmitRequestInput{Username: "nobody", RequestType: "out", Purpose: "p"})
	require.NoError(t, err)
	assert.Equal(t, "Student", res.Request.Role)

	res, err = svc.Submit(context.Background(), SubmitRequestInput{Username: "explicit", RequestType: "in", Purpose: "p", Role: "Warden"})
	require.NoError(t, err)
	assert.Equal(t, "Warden", res.Request.Role)
}

func TestSubmit_ConflictWhileGatePending(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "alice", "Student", "in", "")
	svc := newRequestService(env)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitRequestInput{Username: "alice", RequestType: "out", Purpose: "p"})
	require.NoError(t, err)

	for _, typ := range []string{"out", "in", "OOHostel"} {
		_, err = svc.Submit(ctx, SubmitRequestInput{Username: "alice", RequestType: typ, Purpose: "p"})
		assert.Equal(t, models.CodeConflict, models.ErrorCode(err), typ)
	}
	assert.Equal(t, int64(1), countRequests(t, env, "alice"))
}

func TestSubmit_OutOfHostelRules(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "bob", "Student", "in", "")
	svc := newRequestService(env)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitRequestInput{Username: "bob", RequestType: "OOHostel", Purpose: "p"})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, SubmitRequestInput{Username: "bob", RequestType: "OOHostel", Purpose: "p"})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, SubmitRequestInput{Username: "bob", RequestType: "out", Purpose: "p"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), countRequests(t, env, "bob"))

	_, err = svc.Submit(ctx, SubmitRequestInput{Username: "bob", RequestType: "OOHostel", Purpose: "p"})
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
}

func TestSubmit_RejectedAllowsResubmission(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "alice", "Student", "in", "")
	svc := newRequestService(env)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitRequestInput{Username: "alice", RequestType: "out", Purpose: "p"})
	require.NoError(t, err)
	_, err = newResolutionService(env).ResolveByUsername(ctx, "alice", "reject")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, SubmitRequestInput{Username: "alice", RequestType: "out", Purpose: "again"})
	assert.NoError(t, err)
}

func TestAliceScenario(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "alice", "Student", "in", "")
	requests := newRequestService(env)
	resolver := newResolutionService(env)
	ctx := context.Background()

	submitted, err := requests.Submit(ctx, SubmitRequestInput{Username: "alice", RequestType: "out", Purpose: "market"})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, testutil.ReloadRequest(t, env.db, submitted.Request.ID).Status)

	_, err = requests.Submit(ctx, SubmitRequestInput{Username: "alice", RequestType: "out", Purpose: "again"})
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))

	_, err = resolver.ResolveByUsername(ctx, "alice", "approve")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, testutil.ReloadRequest(t, env.db, submitted.Request.ID).Status)
	assert.Equal(t, "out", testutil.ReloadUser(t, env.db, "alice").Status)

	back, err := requests.Submit(ctx, SubmitRequestInput{Username: "alice", RequestType: "in", Purpose: "return"})
	require.NoError(t, err)
	_, err = resolver.ResolveByUsername(ctx, "alice", "approve")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, testutil.ReloadRequest(t, env.db, back.Request.ID).Status)
	assert.Equal(t, "in", testutil.ReloadUser(t, env.db, "alice").Status)
}

func TestRequestService_Lists(t *testing.T) {
	env := newTestEnv(t)
	svc := newRequestService(env)
	testutil.CreateRequest(t, env.db, "a", "out", models.RequestStatusPending, t0)
	testutil.CreateRequest(t, env.db, "b", "OOHostel", models.RequestStatusPending, t0)
	testutil.CreateRequest(t, env.db, "a", "OOHostel", models.RequestStatusPending, t0.Add(time.Hour))
	testutil.CreateRequest(t, env.db, "c", "in", models.RequestStatusRejected, t0)

	gate, err := svc.ListPendingGate(context.Background())
	require.NoError(t, err)
	assert.Len(t, gate, 1)

	ooh, err := svc.ListPendingOutOfHostel(context.Background())
	require.NoError(t, err)
	require.Len(t, ooh, 2)
	assert.Equal(t, "a", ooh[0].Username)

	mine, err := svc.ListPendingForUser(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
