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

var testPolicy = AlertPolicy{
	StudentRole: "student",
	VisitorRole: "visitor",
	Message:     "please return",
}

func TestSweep_PenalizesStudentsAndNotifiesEveryone(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "s1", "student", "out", "+1001")
	testutil.CreateUser(t, env.db, "s2", "student", "out", "")
	testutil.CreateUser(t, env.db, "s3", "student", "in", "+1003")
	testutil.CreateUser(t, env.db, "s4", "Student", "out", "+1004")
	testutil.CreateUser(t, env.db, "v1", "visitor", "in", "+2001")
	testutil.CreateUser(t, env.db, "v2", "visitor", "in", "+1001")
	testutil.CreateUser(t, env.db, "v3", "visitor", "out", "+2003")

	sender := &recordingSender{}
	report, err := NewAlertService(env.db, env.users, sender, nil, testPolicy).Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, AlertMessageSent, report.Message)
	assert.Equal(t, int64(2), report.Penalized)
	assert.Equal(t, 3, report.Recipients)
	assert.Equal(t, 3, report.Sent)
	assert.Zero(t, report.Failed)
	assert.Empty(t, report.Failures)
	assert.ElementsMatch(t, []string{"+1001", "+2001", "+1001"}, sender.sent)

	assert.Equal(t, 1, testutil.ReloadUser(t, env.db, "s1").Offences)
	assert.Equal(t, 1, testutil.ReloadUser(t, env.db, "s2").Offences)
	assert.Zero(t, testutil.ReloadUser(t, env.db, "s3").Offences)
	assert.Zero(t, testutil.ReloadUser(t, env.db, "s4").Offences)
	assert.Zero(t, testutil.ReloadUser(t, env.db, "v1").Offences)
	assert.Zero(t, testutil.ReloadUser(t, env.db, "v2").Offences)
}

func TestSweep_Empty(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "s1", "student", "in", "+1001")
	testutil.CreateUser(t, env.db, "v1", "visitor", "out", "+2001")

	sender := &recordingSender{}
	report, err := NewAlertService(env.db, env.users, sender, nil, testPolicy).Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, AlertMessageNoRecipients, report.Message)
	assert.Zero(t, report.Penalized)
	assert.Zero(t, sender.count())
	assert.Zero(t, testutil.ReloadUser(t, env.db, "s1").Offences)
}

func TestSweep_PenalizesEvenWithoutPhones(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "s1", "student", "out", "")
	testutil.CreateUser(t, env.db, "s2", "student", "out", "   ")

	sender := &recordingSender{}
	report, err := NewAlertService(env.db, env.users, sender, nil, testPolicy).Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, AlertMessageNoRecipients, report.Message)
	assert.Equal(t, int64(2), report.Penalized)
	assert.Zero(t, sender.count())
	assert.Equal(t, 1, testutil.ReloadUser(t, env.db, "s1").Offences)
}

func TestSweep_SendFailuresAreReported(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "s1", "student", "out", "+1001")
	testutil.CreateUser(t, env.db, "s2", "student", "out", "+1002")
	testutil.CreateUser(t, env.db, "v1", "visitor", "in", "+2001")

	sender := &recordingSender{fail: map[string]bool{"+1002": true}}
	report, err := NewAlertService(env.db, env.users, sender, nil, testPolicy).Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Recipients)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "+1002", report.Failures[0].Phone)
	assert.Equal(t, "undeliverable", report.Failures[0].Error)
	assert.NotEqual(t, AlertMessageSent, report.Message)

	assert.Equal(t, 1, testutil.ReloadUser(t, env.db, "s2").Offences)
}

func TestSweep_RespectsConcurrencyLimit(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		testutil.CreateUser(t, env.db, name, "visitor", "in", "+1"+name)
	}

	policy := testPolicy
	policy.MaxConcurrency = 2
	sender := &recordingSender{delay: 20 * time.Millisecond}
	report, err := NewAlertService(env.db, env.users, sender, nil, policy).Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, report.Sent)
	assert.LessOrEqual(t, sender.maxInFlight, int32(2))
}

func TestSweep_ConfiguredRoles(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "s1", "Student", "out", "+1001")

	policy := testPolicy
	policy.StudentRole = "Student"
	sender := &recordingSender{}
	report, err := NewAlertService(env.db, env.users, sender, nil, policy).Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.Penalized)
	assert.Equal(t, 1, sender.count())
}

func TestRecipientPhones(t *testing.T) {
	t.Parallel()
	students := []models.User{
		{Username: "a", Phone: testutil.StrPtr(" +1 ")},
		{Username: "b"},
		{Username: "c", Phone: testutil.StrPtr("")},
		{Username: "e", Phone: testutil.StrPtr("   ")},
	}
	visitors := []models.User{{Username: "d", Phone: testutil.StrPtr("+1")}}

	assert.Equal(t, []string{"+1", "+1"}, recipientPhones(students, visitors))
	assert.Empty(t, recipientPhones(nil, nil))
}
