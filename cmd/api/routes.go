package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/gatekeeper/internal/apierror"
	"github.com/yourusername/gatekeeper/internal/auth"
	"github.com/yourusername/gatekeeper/internal/config"
	"github.com/yourusername/gatekeeper/internal/jobs"
	"github.com/yourusername/gatekeeper/internal/profile"
	"github.com/yourusername/gatekeeper/internal/ratelimit"
)

// dependencies はルーター構築に必要な外部リソースです。
// Events・Activity・Limiter は Redis が無い場合 nil のままです。
type dependencies struct {
	Store    profile.Store
	Events   jobs.Publisher
	Activity *jobs.ActivityStore
	Limiter  *ratelimit.Limiter
	Logger   *log.Logger
}

// newRouter はミドルウェアとルーティングを組み立てます。
func newRouter(cfg *config.Config, deps dependencies) (*gin.Engine, error) {
	if deps.Store == nil {
		return nil, errors.New("profile store is nil")
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	tokens, err := auth.NewTokenService([]byte(cfg.JWTSecret))
	if err != nil {
		return nil, err
	}
	authManager, err := auth.NewManager(auth.Options{
		Store:   deps.Store,
		Tokens:  tokens,
		Cookies: auth.NewCookieManager(cfg.IsRelease()),
		Events:  deps.Events,
		Logger:  deps.Logger,
		Debug:   !cfg.IsRelease(),
	})
	if err != nil {
		return nil, err
	}

	mapper := apierror.NewMapper(deps.Logger, !cfg.IsRelease())

	router := gin.New()
	// 信頼するプロキシ以外からの X-Forwarded-For は無視する
	if err := router.SetTrustedProxies(cfg.TrustedProxyList()); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	router.Use(mapper.Recovery())
	if cfg.GinMode != gin.TestMode {
		router.Use(gin.Logger())
	}
	router.Use(mapper.Middleware())

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	corsConfig.AllowOrigins = splitOrigins(cfg.CORSAllowedOrigins)
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsConfig.ExposeHeaders = []string{"RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset"}
	router.Use(cors.New(corsConfig))

	limit := func(rule ratelimit.Rule, key ratelimit.KeyFunc) gin.HandlerFunc {
		if deps.Limiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return deps.Limiter.Middleware(rule, key, deps.Logger)
	}

	api := router.Group("/api/v1")
	{
		api.GET("/health-check", handleHealth)

		api.POST("/register", limit(ratelimit.RegisterRule, ratelimit.ByClientIP), authManager.Register)
		api.POST("/login", limit(ratelimit.LoginRule, ratelimit.ByClientIP), authManager.Login)
		// ログアウトはユーザー単位で数えるのでゲートの後ろに置く
		api.POST("/logout",
			authManager.RequireAuthentication(),
			limit(ratelimit.LogoutRule, byIdentity),
			authManager.Logout,
		)

		profileRoutes := api.Group("/user-profile")
		profileRoutes.Use(authManager.RequireAuthentication())
		{
			profileRoutes.GET("", authManager.Profile)
			profileRoutes.GET("/activity", activityHandler(deps.Activity))
		}
	}

	router.NoRoute(apierror.NoRoute)
	return router, nil
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "gatekeeper-api",
		"version": "0.1.0",
	})
}

// byIdentity は認証済みユーザーの ID を制限キーにします。
func byIdentity(c *gin.Context) string {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		return ""
	}
	return "user:" + identity.ID
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
