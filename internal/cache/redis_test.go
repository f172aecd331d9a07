package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		in       string
		wantAddr string
		wantPass string
		wantDB   int
		wantTLS  bool
	}{
		{"redis://:mypassword@redis:6379/1", "redis:6379", "mypassword", 1, false},
		{"rediss://:s3cret@redis.example.com:6380/2", "redis.example.com:6380", "s3cret", 2, true},
		{"redis:6379", "redis:6379", "", 0, false},
		{"", "redis:6379", "", 0, false},
	}

	for _, tc := range tests {
		addr, pass, db, tls := ParseRedisURL(tc.in)
		assert.Equal(t, tc.wantAddr, addr, "addr for %q", tc.in)
		assert.Equal(t, tc.wantPass, pass, "password for %q", tc.in)
		assert.Equal(t, tc.wantDB, db, "db for %q", tc.in)
		assert.Equal(t, tc.wantTLS, tls, "tls for %q", tc.in)
	}
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = Close() })
	return mr
}

type cachedUser struct {
	Username string `json:"username"`
	Status   string `json:"status"`
}

func TestInitRedis_Unreachable(t *testing.T) {
	InitRedis("127.0.0.1:1")
	assert.Nil(t, GetClient())
}

func TestInitRedis_URL(t *testing.T) {
	mr := miniredis.RunT(t)
	InitRedis("redis://" + mr.Addr() + "/0")
	t.Cleanup(func() { _ = Close() })
	require.NotNil(t, GetClient())
	assert.NoError(t, GetClient().Ping(context.Background()).Err())
}

func TestGetSetJSON(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	var got cachedUser
	found, err := GetJSON(ctx, UserKey("alice"), &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, UserKey("alice"), cachedUser{Username: "alice", Status: "in"}, time.Minute))

	found, err = GetJSON(ctx, UserKey("alice"), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "in", got.Status)
}

func TestAside_MissThenHit(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedUser) func() error {
		return func() error {
			calls++
			*dest = cachedUser{Username: "alice", Status: "out"}
			return nil
		}
	}

	var first cachedUser
	require.NoError(t, Aside(ctx, UserKey("alice"), &first, UserTTL, fetch(&first)))
	var second cachedUser
	require.NoError(t, Aside(ctx, UserKey("alice"), &second, UserTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "out", second.Status)
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	boom := errors.New("boom")

	var dest cachedUser
	err := Aside(context.Background(), UserKey("ghost"), &dest, UserTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(UserKey("ghost")))
}

func TestAside_InvalidatedDuringFetchNotStored(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	var stale cachedUser
	err := Aside(ctx, UserKey("alice"), &stale, UserTTL, func() error {
		stale = cachedUser{Username: "alice", Status: "in"}
		// A write commits and invalidates after the row was read.
		InvalidateUsers(ctx, "alice")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "in", stale.Status)
	assert.False(t, mr.Exists(UserKey("alice")))

	var fresh cachedUser
	require.NoError(t, Aside(ctx, UserKey("alice"), &fresh, UserTTL, func() error {
		fresh = cachedUser{Username: "alice", Status: "out"}
		return nil
	}))
	assert.True(t, mr.Exists(UserKey("alice")))

	var cached cachedUser
	found, err := GetJSON(ctx, UserKey("alice"), &cached)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "out", cached.Status)
}

func TestAside_NoClientFallsThrough(t *testing.T) {
	SetClient(nil)
	calls := 0
	var dest cachedUser
	require.NoError(t, Aside(context.Background(), UserKey("bob"), &dest, UserTTL, func() error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}

func TestInvalidateUsers(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, UserKey("a"), cachedUser{Username: "a"}, time.Minute))
	require.NoError(t, SetJSON(ctx, UserKey("b"), cachedUser{Username: "b"}, time.Minute))
	require.NoError(t, SetJSON(ctx, UserKey("c"), cachedUser{Username: "c"}, time.Minute))

	InvalidateUsers(ctx, "a", "b")
	Invalidate(ctx, UserKey("c"))

	assert.False(t, mr.Exists(UserKey("a")))
	assert.False(t, mr.Exists(UserKey("b")))
	assert.False(t, mr.Exists(UserKey("c")))

	gen, err := mr.Get(UserKey("a") + ":gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
}
