package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"parentdoctor/backend/internal/chat"
	"parentdoctor/backend/internal/config"
	"parentdoctor/backend/internal/observability"
)

const familyIDContextKey = "familyID"

// chatEngine is the part of chat.Orchestrator the handlers drive.
type chatEngine interface {
	HandleMessage(ctx context.Context, familyID, userMessage string) (chat.Result, error)
	ClearConversation(familyID string) error
	Profile(ctx context.Context, familyID string) (chat.ProfileView, error)
	Today() time.Time
}

type healthChecker interface {
	Ping(ctx context.Context) error
}

type App struct {
	cfg     config.Config
	engine  chatEngine
	health  healthChecker
	metrics *observability.Metrics
}

// New wires the HTTP surface. health and metrics may be nil.
func New(cfg config.Config, engine chatEngine, health healthChecker, metrics *observability.Metrics) *App {
	return &App{cfg: cfg, engine: engine, health: health, metrics: metrics}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), a.metricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.healthCheck)
	router.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	api := router.Group(a.cfg.APIPrefix)
	api.Use(a.authMiddleware())

	api.POST("/chat/messages", a.postChatMessage)
	api.DELETE("/chat/session", a.clearChatSession)
	api.GET("/children/profile", a.getChildProfile)

	return router
}

func (a *App) healthCheck(c *gin.Context) {
	if a.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := a.health.Ping(ctx); err != nil {
			log.Printf("health check failed err=%v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "degraded",
				"service": "parentdoctor-api",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "parentdoctor-api",
	})
}

func (a *App) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		a.metrics.ObserveRequest(route, strconv.Itoa(c.Writer.Status()), time.Since(started))
	}
}

// authMiddleware resolves the family the caller speaks for. The family_id
// claim wins; tokens without one fall back to the subject.
func (a *App) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}
		tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
		if tokenString == "" {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if token.Method == nil || token.Method.Alg() != a.cfg.JWTAlgorithm {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(a.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(c, http.StatusUnauthorized, "Invalid bearer token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(c, http.StatusUnauthorized, "Invalid token payload")
			return
		}
		if a.cfg.JWTAudience != "" && !claimHasAudience(claims["aud"], a.cfg.JWTAudience) {
			writeError(c, http.StatusUnauthorized, "Invalid token audience")
			return
		}
		if a.cfg.JWTIssuer != "" {
			issuer, _ := claims["iss"].(string)
			if issuer != a.cfg.JWTIssuer {
				writeError(c, http.StatusUnauthorized, "Invalid token issuer")
				return
			}
		}

		familyID := familyIDFromClaims(claims)
		if familyID == "" {
			writeError(c, http.StatusUnauthorized, "Token subject missing")
			return
		}

		c.Set(familyIDContextKey, familyID)
		c.Next()
	}
}

func familyIDFromClaims(claims jwt.MapClaims) string {
	if raw, ok := claims["family_id"].(string); ok {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			return trimmed
		}
	}
	sub, _ := claims["sub"].(string)
	return strings.TrimSpace(sub)
}

func claimHasAudience(value any, audience string) bool {
	switch v := value.(type) {
	case string:
		return v == audience
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == audience {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if item == audience {
				return true
			}
		}
	}
	return false
}

func familyIDFromContext(c *gin.Context) (string, bool) {
	raw, ok := c.Get(familyIDContextKey)
	if !ok {
		return "", false
	}
	familyID, ok := raw.(string)
	return familyID, ok && familyID != ""
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}
