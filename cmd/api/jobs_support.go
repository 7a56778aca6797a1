package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/gatekeeper/internal/apierror"
	"github.com/yourusername/gatekeeper/internal/auth"
	"github.com/yourusername/gatekeeper/internal/config"
	"github.com/yourusername/gatekeeper/internal/jobs"
)

func setupJobs(cfg *config.Config, redisClient *redis.Client, logger *log.Logger) (*jobs.Manager, *jobs.ActivityStore, error) {
	store := jobs.NewActivityStore(redisClient, cfg.ActivityRetention(), cfg.ActivityMaxEvents)
	manager, err := jobs.NewManager(cfg.RedisURL, store, logger)
	if err != nil {
		return nil, nil, err
	}
	return manager, store, nil
}

// activityHandler はログイン中ユーザーの直近の認証イベントを返します。
// store が nil（Redis 未設定）の場合は常に空の一覧を返します。
func activityHandler(store *jobs.ActivityStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := auth.IdentityFrom(c)
		if !ok {
			apierror.Abort(c, apierror.Unauthenticated())
			return
		}

		events := []jobs.Event{}
		if store != nil {
			recent, err := store.Recent(c.Request.Context(), identity.ID)
			if err != nil {
				apierror.Abort(c, fmt.Errorf("failed to load activity: %w", err))
				return
			}
			if recent != nil {
				events = recent
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"events":  events,
		})
	}
}
