package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"

	"parentdoctor/backend/internal/chat"
	"parentdoctor/backend/internal/completion"
	"parentdoctor/backend/internal/config"
	"parentdoctor/backend/internal/observability"
	"parentdoctor/backend/internal/store"
)

var baseTestConfig config.Config

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	baseTestConfig = newTestConfig()
	os.Exit(m.Run())
}

func newTestConfig() config.Config {
	return config.Config{
		AppEnv:           "test",
		AppName:          "ParentDoctor API Test",
		APIPrefix:        "/api/v1",
		AppPort:          "0",
		JWTSecret:        "test-secret-1234567890",
		JWTAlgorithm:     "HS256",
		ChatContextTurns: 10,
		CORSAllowOrigins: []string{
			"http://localhost:5173",
			"http://localhost:3000",
		},
	}
}

func testClock() time.Time {
	return time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
}

type testEnv struct {
	router   *gin.Engine
	profiles chat.ProfileStore
	metrics  *observability.Metrics
}

type testOptions struct {
	cfg      config.Config
	profiles chat.ProfileStore
	health   healthChecker
}

func newTestEnv(t *testing.T, opts testOptions) testEnv {
	t.Helper()
	cfg := opts.cfg
	if cfg.JWTSecret == "" {
		cfg = baseTestConfig
	}
	profiles := opts.profiles
	if profiles == nil {
		profiles = store.NewMemoryProfileStore()
	}
	metrics := observability.NewMetrics(prometheus.NewRegistry(), "test")
	engine := chat.NewOrchestrator(chat.Dependencies{
		Profiles: profiles,
		Doctors: store.NewStaticDoctorDirectory(chat.Doctor{
			Name:      "Dr. Emily Park",
			Specialty: "Pediatrics",
			Location:  "Seattle",
		}),
		Completer:    completion.Mock{},
		Observer:     metrics,
		Now:          testClock,
		Location:     time.UTC,
		ContextTurns: cfg.ChatContextTurns,
	})
	app := New(cfg, engine, opts.health, metrics)
	return testEnv{router: app.Router(), profiles: profiles, metrics: metrics}
}

type failingProfileStore struct{}

func (failingProfileStore) GetProfile(context.Context, string) (*chat.ChildProfile, error) {
	return nil, errors.New("connection refused")
}

func (failingProfileStore) UpsertProfile(context.Context, string, chat.ChildProfile) error {
	return errors.New("connection refused")
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error {
	return errors.New("database is down")
}

func signToken(t *testing.T, sub string, overrides map[string]any) string {
	t.Helper()
	return signTokenWithConfig(t, baseTestConfig, sub, overrides)
}

func signTokenWithConfig(t *testing.T, cfg config.Config, sub string, overrides map[string]any) string {
	t.Helper()

	claims := jwt.MapClaims{
		"exp": time.Now().UTC().Add(1 * time.Hour).Unix(),
		"iat": time.Now().UTC().Add(-1 * time.Minute).Unix(),
	}
	if strings.TrimSpace(sub) != "" {
		claims["sub"] = sub
	}
	if strings.TrimSpace(cfg.JWTAudience) != "" {
		claims["aud"] = cfg.JWTAudience
	}
	if strings.TrimSpace(cfg.JWTIssuer) != "" {
		claims["iss"] = cfg.JWTIssuer
	}
	for key, value := range overrides {
		if value == nil {
			delete(claims, key)
			continue
		}
		claims[key] = value
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func performRequest(t *testing.T, router http.Handler, method, targetPath, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		if raw, ok := body.(string); ok {
			payload = []byte(raw)
		} else if payload, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, targetPath, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSONMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response JSON: %v; body=%s", err, rec.Body.String())
	}
	return payload
}

func responseDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeJSONMap(t, rec)
	detail, _ := body["detail"].(string)
	return detail
}
