package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/verityapp/verity-server/internal/cache"
	"github.com/verityapp/verity-server/internal/config"
)

// AppContext holds the shared dependencies (DB, Redis, Logger, Config)
// injected into every service.
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
}

// New creates a new AppContext.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
	}
}
