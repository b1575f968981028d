package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config points the scenarios at a running registry.
type Config struct {
	BaseURL    string
	SigningKey string
	Issuer     string
	Audience   string
	AdminToken string
}

// TestContext carries per-scenario state shared by every step package.
type TestContext struct {
	cfg     Config
	client  *http.Client
	ctx     context.Context
	account map[string]string
	kitties map[string]uint64

	lastStatus  int
	lastBody    []byte
	lastHeaders http.Header
}

func NewTestContext(cfg Config) *TestContext {
	return &TestContext{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears scenario state.
func (tc *TestContext) Reset(ctx context.Context) {
	tc.ctx = ctx
	tc.account = make(map[string]string)
	tc.kitties = make(map[string]uint64)
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeaders = nil
}

// Account returns the account id for name, creating a fresh one on first use
// so scenarios never share state on a long-lived server.
func (tc *TestContext) Account(name string) string {
	if acc, ok := tc.account[name]; ok {
		return acc
	}
	acc := uuid.NewString()
	tc.account[name] = acc
	return acc
}

func (tc *TestContext) RememberKitty(name string, kittyID uint64) {
	tc.kitties[name] = kittyID
}

func (tc *TestContext) Kitty(name string) (uint64, error) {
	kittyID, ok := tc.kitties[name]
	if !ok {
		return 0, fmt.Errorf("no kitty remembered as %q", name)
	}
	return kittyID, nil
}

func (tc *TestContext) tokenFor(name string) (string, error) {
	now := time.Now()
	account := tc.Account(name)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_id": account,
		"sub":        account,
		"iss":        tc.cfg.Issuer,
		"aud":        []string{tc.cfg.Audience},
		"iat":        now.Unix(),
		"exp":        now.Add(time.Hour).Unix(),
		"jti":        uuid.NewString(),
	})
	return token.SignedString([]byte(tc.cfg.SigningKey))
}

// POSTAs sends body as the named account.
func (tc *TestContext) POSTAs(name, path string, body any) error {
	token, err := tc.tokenFor(name)
	if err != nil {
		return err
	}
	return tc.do(http.MethodPost, path, body, map[string]string{"Authorization": "Bearer " + token})
}

// POSTAdmin sends body with the operator token.
func (tc *TestContext) POSTAdmin(path string, body any) error {
	return tc.do(http.MethodPost, path, body, map[string]string{"X-Admin-Token": tc.cfg.AdminToken})
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil, nil)
}

func (tc *TestContext) do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(tc.ctx, method, strings.TrimRight(tc.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastStatus = resp.StatusCode
	tc.lastHeaders = resp.Header
	return nil
}

func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.lastHeaders == nil {
		return ""
	}
	return tc.lastHeaders.Get(name)
}

// GetResponseField decodes the last body and returns a top-level field.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("decode response: %w (body %s)", err, tc.lastBody)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("response has no %q field: %s", field, tc.lastBody)
	}
	return v, nil
}
