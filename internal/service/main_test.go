package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gatepass/internal/repository"
	"gatepass/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db       *gorm.DB
	users    repository.UserRepository
	requests repository.RequestRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return &testEnv{
		db:       db,
		users:    repository.NewUserRepository(db),
		requests: repository.NewRequestRepository(db),
	}
}

// newMockEnv wires the repositories to a sqlmock-backed postgres dialector so
// tests can assert the exact order of locking statements.
func newMockEnv(t *testing.T) (*testEnv, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return &testEnv{
		db:       db,
		users:    repository.NewUserRepository(db),
		requests: repository.NewRequestRepository(db),
	}, mock
}

// recordingSender captures every message and fails for phones listed in fail.
type recordingSender struct {
	mu          sync.Mutex
	sent        []string
	fail        map[string]bool
	delay       time.Duration
	inFlight    int32
	maxInFlight int32
}

func (s *recordingSender) Send(_ context.Context, to, _ string) error {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&s.maxInFlight)
		if n <= peak || atomic.CompareAndSwapInt32(&s.maxInFlight, peak, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to)
	if s.fail[to] {
		return errors.New("undeliverable")
	}
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}
