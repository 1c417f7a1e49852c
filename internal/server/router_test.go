package server

import (
	"net/http"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestHealthOK(t *testing.T) {
	env := newTestEnv(t, testOptions{})
	rec := performRequest(t, env.router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	body := decodeJSONMap(t, rec)
	if body["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", body["status"])
	}
	if body["service"] != "parentdoctor-api" {
		t.Fatalf("expected service=parentdoctor-api, got %v", body["service"])
	}
}

func TestHealthReportsDegradedStore(t *testing.T) {
	env := newTestEnv(t, testOptions{health: failingPinger{}})
	rec := performRequest(t, env.router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", rec.Code, rec.Body.String())
	}
	if body := decodeJSONMap(t, rec); body["status"] != "degraded" {
		t.Fatalf("expected status=degraded, got %v", body["status"])
	}
}

func TestMetricsEndpointExposesEngineCounters(t *testing.T) {
	env := newTestEnv(t, testOptions{})
	token := signToken(t, "family-metrics", nil)
	if rec := performRequest(t, env.router, http.MethodPost, "/api/v1/chat/messages", token, map[string]any{"message": "hello"}); rec.Code != http.StatusOK {
		t.Fatalf("expected chat 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec := performRequest(t, env.router, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `test_chat_messages_total{path="completion"} 1`) {
		t.Fatalf("expected completion counter, got %s", body)
	}
	if !strings.Contains(body, `route="/api/v1/chat/messages"`) {
		t.Fatalf("expected request histogram for the chat route, got %s", body)
	}
}

func TestProtectedEndpointRejectsMissingBearerToken(t *testing.T) {
	env := newTestEnv(t, testOptions{})
	rec := performRequest(t, env.router, http.MethodGet, "/api/v1/children/profile", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
	if detail := responseDetail(t, rec); detail != "Bearer token required" {
		t.Fatalf("expected Bearer token required, got %q", detail)
	}
}

func TestProtectedEndpointRejectsMalformedToken(t *testing.T) {
	env := newTestEnv(t, testOptions{})
	rec := performRequest(t, env.router, http.MethodGet, "/api/v1/children/profile", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
	if detail := responseDetail(t, rec); detail != "Invalid bearer token" {
		t.Fatalf("expected invalid bearer token detail, got %q", detail)
	}
}

func TestProtectedEndpointRejectsTokenWithoutSub(t *testing.T) {
	env := newTestEnv(t, testOptions{})
	token := signToken(t, "", nil)

	rec := performRequest(t, env.router, http.MethodGet, "/api/v1/children/profile", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
	if detail := responseDetail(t, rec); detail != "Token subject missing" {
		t.Fatalf("expected token subject missing detail, got %q", detail)
	}
}

func TestProtectedEndpointRejectsWrongSigningMethod(t *testing.T) {
	env := newTestEnv(t, testOptions{})
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "family-1"})
	signed, err := token.SignedString([]byte(baseTestConfig.JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	rec := performRequest(t, env.router, http.MethodGet, "/api/v1/children/profile", signed, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestProtectedEndpointChecksAudienceAndIssuer(t *testing.T) {
	cfg := newTestConfig()
	cfg.JWTAudience = "parentdoctor-app"
	cfg.JWTIssuer = "parentdoctor-auth"
	env := newTestEnv(t, testOptions{cfg: cfg})

	cases := []struct {
		name      string
		overrides map[string]any
		detail    string
	}{
		{name: "wrong audience", overrides: map[string]any{"aud": "other-app"}, detail: "Invalid token audience"},
		{name: "wrong issuer", overrides: map[string]any{"iss": "other-auth"}, detail: "Invalid token issuer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := signTokenWithConfig(t, cfg, "family-1", tc.overrides)
			rec := performRequest(t, env.router, http.MethodGet, "/api/v1/children/profile", token, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
			}
			if detail := responseDetail(t, rec); detail != tc.detail {
				t.Fatalf("expected %q, got %q", tc.detail, detail)
			}
		})
	}

	token := signTokenWithConfig(t, cfg, "family-1", map[string]any{"aud": []string{"x", "parentdoctor-app"}})
	if rec := performRequest(t, env.router, http.MethodGet, "/api/v1/children/profile", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with matching audience list, got %d body=%s", rec.Code, rec.Body.String())
	}
}
