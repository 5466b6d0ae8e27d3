package router

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpcontext "github.com/dtroode/socialmesh/internal/api/http/context"
	"github.com/dtroode/socialmesh/internal/mocks"
	"github.com/dtroode/socialmesh/internal/model"
	"github.com/dtroode/socialmesh/internal/ratelimit"
	"github.com/dtroode/socialmesh/internal/testutil"
	"github.com/dtroode/socialmesh/internal/trust"
)

type seen struct {
	Path      string `json:"path"`
	UserID    string `json:"userId"`
	HasUserID bool   `json:"hasUserId"`
	Signature string `json:"signature"`
	RequestID string `json:"requestId"`
	Forwarded string `json:"forwarded"`
}

// echoUpstream answers with what it received and counts its requests.
func echoUpstream(t *testing.T) (*url.URL, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, has := r.Header[http.CanonicalHeaderKey(trust.HeaderUserID)]
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(seen{
			Path:      r.URL.Path,
			UserID:    r.Header.Get(trust.HeaderUserID),
			HasUserID: has,
			Signature: r.Header.Get(trust.HeaderSignature),
			RequestID: r.Header.Get("X-Request-ID"),
			Forwarded: r.Header.Get("X-Forwarded-For"),
		})
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return u, &hits
}

// newGateway serves the gateway on a real listener; the reverse proxy needs a
// connection-backed response writer.
func newGateway(t *testing.T, verifier *mocks.TokenIssuer, identity, post *url.URL, limit ratelimit.Limit, signer *trust.Signer) *httptest.Server {
	t.Helper()

	health := mocks.NewHealthChecker(t)
	health.On("Ping", mock.Anything).Return(nil).Maybe()

	e, err := NewGateway(GatewayOptions{
		IdentityURL:    identity,
		PostURL:        post,
		Limiter:        ratelimit.NewMemory(limit, nil),
		Verifier:       verifier,
		Signer:         signer,
		Health:         health,
		ContextManager: httpcontext.NewManager(),
		Logger:         testutil.MakeNoopLogger(),
	}).Register()
	require.NoError(t, err)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func gatewayLimit() ratelimit.Limit {
	return ratelimit.Limit{Points: 100, Window: 15 * time.Minute}
}

func send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	return send(t, req)
}

func decodeSeen(t *testing.T, body []byte) seen {
	t.Helper()
	var s seen
	require.NoError(t, json.Unmarshal(body, &s))
	return s
}

func TestGateway_RewritesPathsPerService(t *testing.T) {
	identity, _ := echoUpstream(t)
	post, _ := echoUpstream(t)
	srv := newGateway(t, mocks.NewTokenIssuer(t), identity, post, gatewayLimit(), nil)

	tests := []struct {
		path     string
		wantPath string
	}{
		{path: "/v1/auth/login", wantPath: "/api/auth/login"},
		{path: "/v1/post/feed/42", wantPath: "/api/post/feed/42"},
	}

	for _, tt := range tests {
		resp, body := get(t, srv, tt.path)
		require.Equal(t, http.StatusOK, resp.StatusCode, tt.path)

		s := decodeSeen(t, body)
		assert.Equal(t, tt.wantPath, s.Path)
		assert.True(t, s.HasUserID)
		assert.Empty(t, s.UserID)
		assert.NotEmpty(t, s.RequestID)
		assert.NotEmpty(t, s.Forwarded)
	}
}

// rawGet sends the request line untouched, so dot segments reach the server.
func rawGet(t *testing.T, srv *httptest.Server, target string) (*http.Response, []byte) {
	t.Helper()

	conn, err := net.Dial("tcp", srv.Listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = fmt.Fprintf(conn, "GET %s HTTP/1.1\r\nHost: gateway\r\nConnection: close\r\n\r\n", target)
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestGateway_DotSegmentsStayUnderServicePrefix(t *testing.T) {
	identity, identityHits := echoUpstream(t)
	post, postHits := echoUpstream(t)
	srv := newGateway(t, mocks.NewTokenIssuer(t), identity, post, gatewayLimit(), nil)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantPath   string
	}{
		{name: "escape to identity metrics", target: "/v1/auth/../../metrics", wantStatus: http.StatusNotFound},
		{name: "escape to identity root", target: "/v1/auth/../../../healthz", wantStatus: http.StatusNotFound},
		{name: "cross into another service", target: "/v1/post/../auth/login", wantStatus: http.StatusNotFound},
		{name: "dot segment inside prefix", target: "/v1/auth/x/../login", wantStatus: http.StatusOK, wantPath: "/api/auth/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := rawGet(t, srv, tt.target)
			require.Equal(t, tt.wantStatus, resp.StatusCode, string(body))

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantPath, decodeSeen(t, body).Path)
				return
			}
			assert.Contains(t, string(body), "NotFoundError")
		})
	}

	assert.EqualValues(t, 1, identityHits.Load())
	assert.EqualValues(t, 0, postHits.Load())
}

func TestGateway_InjectsVerifiedIdentity(t *testing.T) {
	userID := uuid.New()
	signer := trust.NewSigner("shared", 5*time.Minute)
	verifier := mocks.NewTokenIssuer(t)
	verifier.On("Verify", "good").Return(userID, nil)
	identity, _ := echoUpstream(t)
	post, _ := echoUpstream(t)
	srv := newGateway(t, verifier, identity, post, gatewayLimit(), signer)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/post/create", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set(trust.HeaderUserID, uuid.NewString())
	resp, body := send(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	s := decodeSeen(t, body)
	assert.Equal(t, userID.String(), s.UserID)
	assert.NoError(t, signer.Verify(s.UserID, s.Signature))
}

func TestGateway_StripsSpoofedIdentity(t *testing.T) {
	identity, _ := echoUpstream(t)
	post, _ := echoUpstream(t)
	srv := newGateway(t, mocks.NewTokenIssuer(t), identity, post, gatewayLimit(), nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/post/feed", nil)
	require.NoError(t, err)
	req.Header.Set(trust.HeaderUserID, uuid.NewString())
	req.Header.Set(trust.HeaderSignature, "forged")
	resp, body := send(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	s := decodeSeen(t, body)
	assert.True(t, s.HasUserID)
	assert.Empty(t, s.UserID)
	assert.Empty(t, s.Signature)
}

func TestGateway_InvalidTokenNeverReachesUpstream(t *testing.T) {
	upstream, hits := echoUpstream(t)

	verifier := mocks.NewTokenIssuer(t)
	verifier.On("Verify", "expired").Return(uuid.Nil, model.ErrInvalidToken)
	srv := newGateway(t, verifier, upstream, upstream, gatewayLimit(), nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/post/feed", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer expired")
	resp, body := send(t, req)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "InvalidTokenError")
	assert.EqualValues(t, 0, hits.Load())
}

func TestGateway_UpstreamDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	u, err := url.Parse(dead.URL)
	require.NoError(t, err)
	dead.Close()

	srv := newGateway(t, mocks.NewTokenIssuer(t), u, u, gatewayLimit(), nil)

	resp, body := get(t, srv, "/v1/auth/me")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var env map[string]any
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, false, env["success"])
	assert.Equal(t, "UpstreamError", env["error"])
}

func TestGateway_RateLimit(t *testing.T) {
	identity, _ := echoUpstream(t)
	post, _ := echoUpstream(t)
	srv := newGateway(t, mocks.NewTokenIssuer(t), identity, post,
		ratelimit.Limit{Points: 2, Window: 15 * time.Minute}, nil)

	for i := 0; i < 2; i++ {
		resp, _ := get(t, srv, "/v1/post/feed")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, _ := get(t, srv, "/v1/post/feed")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	resp, _ = get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
