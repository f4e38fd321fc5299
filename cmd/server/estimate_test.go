package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/costeo3d/internal/costing"
	"github.com/Simplici0/costeo3d/internal/quoting"
	"github.com/Simplici0/costeo3d/internal/rules"
)

// legacyRequest prices 2 h of FDM printing and 50 g of filament with 30 labor minutes.
// With the seeded catalog (one FDM machine at rate 0) the direct cost is 0.24 + 4 = 4.24.
func legacyRequest() quoting.Request {
	return quoting.Request{
		MarginPercent: 40,
		Input: costing.Input{
			TotalMinutes:        120,
			MaterialWeightGrams: 50,
			HumanMinutes:        30,
		},
	}
}

func TestEstimateEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.client(t)

	resp := env.do(t, c, http.MethodPost, "/api/estimate", legacyRequest())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	est := decodeBody[quoting.Estimate](t, resp)

	assert.InDelta(t, 4.24, est.Breakdown.TotalDirect, 1e-9)
	assert.InDelta(t, 7.5, est.Breakdown.LaborValue, 1e-9)
	assert.InDelta(t, 11.74/0.6, est.Pricing.RecommendedPrice, 1e-9)
	assert.Equal(t, est.Pricing.RecommendedPrice, est.FinalPrice)
	assert.Equal(t, "COP", est.Currency)
	require.Len(t, est.Breakdown.Jobs, 1)
	assert.Equal(t, costing.RateFromTypeAverage, est.Breakdown.Jobs[0].RateSource)
}

func TestEstimateEndpointUsesPaintingRate(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.client(t)

	req := legacyRequest()
	req.Input.LaborDetails = &costing.LaborDetail{PaintingMinutes: 60}

	resp := env.do(t, c, http.MethodPost, "/api/estimate", req)
	est := decodeBody[quoting.Estimate](t, resp)
	assert.InDelta(t, 20, est.Breakdown.LaborValue, 1e-9)
}

func TestEstimateEndpointAppliesRules(t *testing.T) {
	set, err := rules.Compile([]rules.Rule{{Name: "pedido-minimo", When: "price < 50", Price: "50"}})
	require.NoError(t, err)
	env := newTestEnv(t, set)
	c := env.client(t)

	resp := env.do(t, c, http.MethodPost, "/api/estimate", legacyRequest())
	est := decodeBody[quoting.Estimate](t, resp)
	assert.Equal(t, 50.0, est.FinalPrice)
	assert.Equal(t, []string{"pedido-minimo"}, est.AppliedRules)
}

func TestEstimateEndpointRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.client(t)

	req := legacyRequest()
	req.Input.HumanMinutes = -1

	resp := env.do(t, c, http.MethodPost, "/api/estimate", req)
	p := decodeBody[problem](t, resp)
	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Equal(t, "humanMinutes", p.Field)
	assert.Equal(t, "humanMinutes debe ser mayor o igual a 0", p.Detail)
}

func TestEstimateEndpointUnknownConsumable(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.client(t)

	req := legacyRequest()
	req.ConsumableIDs = []int64{999}

	resp := env.do(t, c, http.MethodPost, "/api/estimate", req)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEstimateSocket(t *testing.T) {
	env := newTestEnv(t, nil)
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws/estimate"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(legacyRequest()))
	var reply socketReply
	require.NoError(t, conn.ReadJSON(&reply))
	require.NotNil(t, reply.Estimate)
	assert.Empty(t, reply.Error)
	assert.InDelta(t, 11.74/0.6, reply.Estimate.FinalPrice, 1e-9)

	bad := legacyRequest()
	bad.MarginPercent = -5
	require.NoError(t, conn.WriteJSON(bad))
	reply = socketReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Nil(t, reply.Estimate)
	assert.Equal(t, "marginPercent", reply.Field)

	// The connection stays usable after a rejected message.
	require.NoError(t, conn.WriteJSON(legacyRequest()))
	reply = socketReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.NotNil(t, reply.Estimate)
}

func TestEstimateSocketIsRateLimited(t *testing.T) {
	// The upgrade spends one token and the first message the other.
	env := newTestEnvWith(t, serverOptions{sessionSecret: "test-secret", rateLimit: 0.001, rateBurst: 2})
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws/estimate"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(legacyRequest()))
	var reply socketReply
	require.NoError(t, conn.ReadJSON(&reply))
	require.NotNil(t, reply.Estimate)

	served := 0
	for range 10 {
		require.NoError(t, conn.WriteJSON(legacyRequest()))
		reply = socketReply{}
		require.NoError(t, conn.ReadJSON(&reply))
		if reply.Estimate != nil {
			served++
			continue
		}
		assert.Equal(t, rateLimitedMessage, reply.Error)
	}
	assert.Zero(t, served)

	// The socket and the HTTP endpoint share the client's budget.
	resp := env.do(t, env.client(t), http.MethodPost, "/api/estimate", legacyRequest())
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimitIgnoresForwardedHeaders(t *testing.T) {
	env := newTestEnvWith(t, serverOptions{sessionSecret: "test-secret", rateLimit: 0.001, rateBurst: 1})
	c := env.client(t)

	statuses := make([]int, 0, 5)
	for i := range 5 {
		raw, err := json.Marshal(legacyRequest())
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, env.http.URL+"/api/estimate", bytes.NewReader(raw))
		require.NoError(t, err)
		spoofed := "203.0.113." + strconv.Itoa(i+1)
		req.Header.Set("X-Forwarded-For", spoofed)
		req.Header.Set("X-Real-IP", spoofed)
		req.Header.Set("True-Client-IP", spoofed)
		resp, err := c.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, http.StatusOK, statuses[0])
	for _, status := range statuses[1:] {
		assert.Equal(t, http.StatusTooManyRequests, status)
	}
}

func TestIPRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	l := newIPRateLimiter(1, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, l.allow("10.0.0.1"))

	now = now.Add(visitorTTL + time.Second)
	l.allow("10.0.0.3")
	assert.Len(t, l.visitors, 1)
}

func TestRateLimitMiddleware(t *testing.T) {
	l := newIPRateLimiter(1, 1)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/estimate", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/estimate", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.5:4321"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	r.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "192.168.1.5", clientIP(r))

	r.RemoteAddr = "[::1]"
	assert.Equal(t, "::1", clientIP(r))
}
