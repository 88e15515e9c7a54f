package settings

import (
	"context"
	"strconv"
	"sync"
	"time"

	"NetGuardEngine/internal/config"
	"NetGuardEngine/internal/logger"
	"NetGuardEngine/internal/models"

	"github.com/redis/go-redis/v9"
)

// The user-facing flags are owned and persisted by the dashboard's settings
// subsystem; the engine only reads them. The store is consulted on every
// poll so a toggle takes effect on the next tick without a restart.

const (
	keyNotificationsEnabled = "notifications_enabled"
	keySoundAlerts          = "sound_alerts"
)

// Static always returns the same flags. Used when no settings store is
// configured, and in tests.
type Static struct {
	Flags models.Settings
}

func (s Static) Current(context.Context) models.Settings {
	return s.Flags
}

// Redis reads the flags from the external key-value store. Reads are
// best-effort: a missing key falls back to the configured default and a
// transport error returns the last values successfully read.
type Redis struct {
	client      *redis.Client
	prefix      string
	readTimeout time.Duration
	defaults    models.Settings
	log         *logger.Logger

	mu   sync.Mutex
	last models.Settings
}

func NewRedis(cfg config.SettingsConfig, log *logger.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	defaults := models.Settings{
		NotificationsEnabled: cfg.DefaultNotificationsEnabled,
		SoundAlerts:          cfg.DefaultSoundAlerts,
	}

	return &Redis{
		client:      client,
		prefix:      cfg.KeyPrefix,
		readTimeout: cfg.ReadTimeout,
		defaults:    defaults,
		log:         log,
		last:        defaults,
	}
}

func (r *Redis) Current(ctx context.Context) models.Settings {
	rctx, cancel := context.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	values, err := r.client.MGet(rctx,
		r.prefix+":"+keyNotificationsEnabled,
		r.prefix+":"+keySoundAlerts,
	).Result()
	if err != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.log.Debug("Settings store read failed, keeping last known flags: %v", err)
		return r.last
	}

	flags := models.Settings{
		NotificationsEnabled: parseFlag(values[0], r.defaults.NotificationsEnabled),
		SoundAlerts:          parseFlag(values[1], r.defaults.SoundAlerts),
	}

	r.mu.Lock()
	r.last = flags
	r.mu.Unlock()

	return flags
}

// Ping reports store reachability for the health endpoint.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func parseFlag(value interface{}, fallback bool) bool {
	s, ok := value.(string)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return parsed
}

// NewProvider picks the Redis store when one is configured, the static
// defaults otherwise.
func NewProvider(cfg config.SettingsConfig, log *logger.Logger) models.SettingsProvider {
	if cfg.Addr == "" {
		return Static{Flags: models.Settings{
			NotificationsEnabled: cfg.DefaultNotificationsEnabled,
			SoundAlerts:          cfg.DefaultSoundAlerts,
		}}
	}
	return NewRedis(cfg, log)
}
