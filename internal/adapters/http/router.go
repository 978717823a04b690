package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Chat/internal/adapters/signal"
	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/config"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

const (
	sessionUsernameKey = "username"
	sessionMaxAge      = 3600 * 24 * 30
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set(signal.ClientTokenKey, token)
		c.Next()
	}
}

// NewCORS mirrors the allowed origins of the config; "*" allows every origin.
func NewCORS(cfg *config.Config) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	})
}

// SetupRouter wires the HTTP surface: liveness, the WebSocket endpoint, the
// room lookup API, the browser session and metrics. CORS wraps everything.
func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, hub *signal.Hub, metricsHandler http.Handler) http.Handler {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("ChatSessions", store))
	r.Use(ClientTokenMiddleware())

	crs := NewCORS(cfg)
	ctrl := signal.NewSignalWSController(o, hub,
		signal.NewJoinLimiter(cfg.JoinAttempts, cfg.JoinWindow),
		signal.OptionsFromConfig(cfg, crs.OriginAllowed))

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Chat server is running...")
	})
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	r.GET("/ws", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	api := r.Group("/api")
	// A live code is the only thing guarding a room, so lookups stay out of
	// release builds where they would bypass the join limiter.
	if cfg.Mode == "debug" {
		api.GET("/rooms/:code", roomHandler(o))
	}
	api.GET("/stats", statsHandler(cfg, o, hub))
	api.GET("/session", getSession)
	api.PUT("/session", putSession)

	log.Info().Str("module", "adapters.http").Strs("origins", cfg.AllowedOrigins).Msg("router setup")
	return crs.Handler(r)
}

func roomHandler(o *orch.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := domain.ParseRoomCode(c.Param("code"))
		n := o.Registry.MemberCount(code)
		if n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room does not exist."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": code, "memberCount": n})
	}
}

func statsHandler(cfg *config.Config, o *orch.Orchestrator, hub *signal.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		rooms, members := o.Registry.Stats()
		resp := gin.H{
			"rooms":       rooms,
			"members":     members,
			"connections": hub.Len(),
		}
		// Room codes are the only thing guarding a room, so list them in debug only.
		if cfg.Mode == "debug" {
			resp["list"] = o.Registry.List()
		}
		c.JSON(http.StatusOK, resp)
	}
}
