package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"ws-chat/client"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type BaseGatewaySuite struct {
	suite.Suite
	Config Config
	http   *http.Client
}

// Account is a user registered for one scenario.
type Account struct {
	ID       uuid.UUID
	Username string
	Token    string
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseGatewaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.GatewayAddr == "" {
		s.T().Skip("E2E_GATEWAY_ADDR is not set")
	}
	s.http = &http.Client{Timeout: 10 * time.Second}
}

// Step prints a colorized header for a scenario step in logs
func (s *BaseGatewaySuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Call sends a JSON request to the REST API and decodes the response into out, if any.
func (s *BaseGatewaySuite) Call(method, path, token string, body, out any) int {
	var payload io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, "http://"+s.Config.GatewayAddr+path, payload)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.http.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	s.T().Logf("HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		s.T().Logf("RESPONSE: %s", data)
	}
	if out != nil && resp.StatusCode < http.StatusBadRequest {
		s.Require().NoError(json.Unmarshal(data, out))
	}
	return resp.StatusCode
}

// Register creates a fresh account with a unique username.
func (s *BaseGatewaySuite) Register(prefix string) Account {
	username := fmt.Sprintf("%s%s", prefix, uuid.NewString()[:8])
	var resp struct {
		AccessToken string    `json:"access_token"`
		UserID      uuid.UUID `json:"user_id"`
	}
	status := s.Call(http.MethodPost, "/auth/register", "", map[string]string{
		"email": username + "@e2e.io", "username": username, "password": "password123",
	}, &resp)
	s.Require().Equal(http.StatusOK, status)
	return Account{ID: resp.UserID, Username: username, Token: resp.AccessToken}
}

// Connect opens a websocket for account and forwards its frames to the returned channel.
func (s *BaseGatewaySuite) Connect(account Account) (*client.Client, <-chan client.Frame) {
	ctx, cancel := context.WithCancel(context.Background())
	c, err := client.Dial(ctx, logs.GetLoggerFromLevel(slog.LevelDebug), s.Config.GatewayAddr, account.Token, false)
	s.Require().NoError(err)

	frames := make(chan client.Frame, 16)
	go func() { _ = c.Listen(ctx, func(f client.Frame) { frames <- f }) }()
	s.T().Cleanup(func() {
		cancel()
		_ = c.Close()
	})
	return c, frames
}

// Next waits for the next frame of a connection.
func (s *BaseGatewaySuite) Next(frames <-chan client.Frame) client.Frame {
	select {
	case f := <-frames:
		return f
	case <-time.After(5 * time.Second):
		s.Require().FailNow("no frame received")
		return client.Frame{}
	}
}

// Silent asserts that a connection receives nothing for a while.
func (s *BaseGatewaySuite) Silent(frames <-chan client.Frame) {
	select {
	case f := <-frames:
		s.Require().Failf("unexpected frame", "%+v", f)
	case <-time.After(300 * time.Millisecond):
	}
}
