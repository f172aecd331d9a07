package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gatepass/internal/config"
	"gatepass/internal/sms"
	"gatepass/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// MockSender is a testify mock of sms.Sender.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, to, body string) error {
	args := m.Called(ctx, to, body)
	return args.Error(0)
}

var _ sms.Sender = (*MockSender)(nil)

func testConfig() *config.Config {
	return &config.Config{
		Port:             "0",
		Env:              "test",
		APIBasePath:      "/api",
		AllowedOrigins:   "*",
		AlertStudentRole: "student",
		AlertVisitorRole: "visitor",
		AlertMessage:     "return now",
	}
}

func setupServer(t *testing.T, sender sms.Sender) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	if sender == nil {
		sender = sms.LogSender{}
	}
	s, err := NewServerWithDeps(testConfig(), db, nil, sender)
	require.NoError(t, err)
	return s.newApp(), db
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}
