package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"NetGuardEngine/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Engine   EngineConfig
	Settings SettingsConfig
	MQTT     MQTTConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxHeaderBytes  int

	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	RateLimitPerMinute int
	EnableRateLimit    bool
}

// BackendConfig points the engine at the monitoring backend it mirrors.
type BackendConfig struct {
	BaseURL        string
	WebSocketURL   string
	RequestTimeout time.Duration
}

// EngineConfig carries the reconciliation cadences and notification policy.
type EngineConfig struct {
	AutoRefresh       bool
	RefreshInterval   time.Duration
	AlertPollInterval time.Duration
	NotificationTTL   time.Duration
	AutoClose         bool
	AckUser           string
	WSReconnectDelay  time.Duration
}

// SettingsConfig describes the external key-value store that owns the
// user-facing flags. An empty Addr disables the store and the defaults below
// apply unconditionally.
type SettingsConfig struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	ReadTimeout time.Duration

	DefaultNotificationsEnabled bool
	DefaultSoundAlerts          bool
}

type MQTTConfig struct {
	Enabled        bool
	Broker         string
	Port           int
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string
	QoS            byte
	RetainMessages bool
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	AutoReconnect  bool
}

type LoggingConfig struct {
	Level      logger.Level
	FilePath   string
	UseColors  bool
	ShowCaller bool
}

var requiredEnvVars = []string{
	"BACKEND_URL",
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	if err := validateRequired(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:   loadServerConfig(),
		Backend:  loadBackendConfig(),
		Engine:   loadEngineConfig(),
		Settings: loadSettingsConfig(),
		MQTT:     loadMQTTConfig(),
		Logging:  loadLoggingConfig(),
	}

	return cfg, nil
}

func validateRequired() error {
	var missing []string

	for _, key := range requiredEnvVars {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

func loadServerConfig() ServerConfig {
	origins := getEnv("CORS_ALLOWED_ORIGINS", "*")
	methods := getEnv("CORS_ALLOWED_METHODS", "GET,POST,DELETE,OPTIONS")

	return ServerConfig{
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		Port:            getEnvAsInt("SERVER_PORT", 8090),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", "15s"),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", "10s"),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", "10s"),
		MaxHeaderBytes:  getEnvAsInt("MAX_HEADER_BYTES", 1048576),

		CORSAllowedOrigins: strings.Split(origins, ","),
		CORSAllowedMethods: strings.Split(methods, ","),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 300),
		EnableRateLimit:    getEnvAsBool("ENABLE_RATE_LIMIT", false),
	}
}

func loadBackendConfig() BackendConfig {
	base := strings.TrimRight(getEnv("BACKEND_URL", "http://127.0.0.1:8000"), "/")

	// Derive ws:// from the HTTP base unless explicitly overridden.
	wsURL := getEnv("BACKEND_WS_URL", "")
	if wsURL == "" {
		wsURL = strings.Replace(base, "http", "ws", 1) + "/ws"
	}

	return BackendConfig{
		BaseURL:        base,
		WebSocketURL:   wsURL,
		RequestTimeout: getEnvAsDuration("BACKEND_TIMEOUT", "8s"),
	}
}

func loadEngineConfig() EngineConfig {
	return EngineConfig{
		AutoRefresh:       getEnvAsBool("AUTO_REFRESH", true),
		RefreshInterval:   getEnvAsDuration("REFRESH_INTERVAL", "30s"),
		AlertPollInterval: getEnvAsDuration("ALERT_POLL_INTERVAL", "10s"),
		NotificationTTL:   getEnvAsDuration("NOTIFICATION_TTL", "10s"),
		AutoClose:         getEnvAsBool("NOTIFICATION_AUTO_CLOSE", true),
		AckUser:           getEnv("ACK_USER", "admin"),
		WSReconnectDelay:  getEnvAsDuration("WS_RECONNECT_DELAY", "5s"),
	}
}

func loadSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Addr:        getEnv("SETTINGS_REDIS_ADDR", ""),
		Password:    getEnv("SETTINGS_REDIS_PASSWORD", ""),
		DB:          getEnvAsInt("SETTINGS_REDIS_DB", 0),
		KeyPrefix:   getEnv("SETTINGS_KEY_PREFIX", "netguard:config"),
		ReadTimeout: getEnvAsDuration("SETTINGS_READ_TIMEOUT", "2s"),

		DefaultNotificationsEnabled: getEnvAsBool("NOTIFICATIONS_ENABLED", true),
		DefaultSoundAlerts:          getEnvAsBool("SOUND_ALERTS", false),
	}
}

func loadMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Enabled:        getEnvAsBool("MQTT_ENABLED", false),
		Broker:         getEnv("MQTT_BROKER", "localhost"),
		Port:           getEnvAsInt("MQTT_PORT", 1883),
		ClientID:       getEnv("MQTT_CLIENT_ID", "netguard-engine"),
		Username:       getEnv("MQTT_USERNAME", ""),
		Password:       getEnv("MQTT_PASSWORD", ""),
		TopicPrefix:    getEnv("MQTT_TOPIC_PREFIX", "netguard/notifications"),
		QoS:            byte(getEnvAsInt("MQTT_QOS", 1)),
		RetainMessages: getEnvAsBool("MQTT_RETAIN", false),
		KeepAlive:      getEnvAsDuration("MQTT_KEEP_ALIVE", "60s"),
		ConnectTimeout: getEnvAsDuration("MQTT_CONNECT_TIMEOUT", "10s"),
		AutoReconnect:  getEnvAsBool("MQTT_AUTO_RECONNECT", true),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      logger.ParseLevel(getEnv("LOG_LEVEL", "info")),
		FilePath:   getEnv("LOG_FILE_PATH", ""),
		UseColors:  getEnvAsBool("LOG_USE_COLORS", true),
		ShowCaller: getEnvAsBool("LOG_SHOW_CALLER", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		errors = append(errors, "BACKEND_URL must start with http:// or https://")
	}

	if c.Engine.AlertPollInterval <= 0 {
		errors = append(errors, "ALERT_POLL_INTERVAL must be positive")
	}

	if c.Engine.RefreshInterval <= 0 {
		errors = append(errors, "REFRESH_INTERVAL must be positive")
	}

	if c.Engine.NotificationTTL <= 0 {
		errors = append(errors, "NOTIFICATION_TTL must be positive")
	}

	if c.MQTT.Enabled && (c.MQTT.Port < 1 || c.MQTT.Port > 65535) {
		errors = append(errors, "MQTT_PORT must be between 1 and 65535")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func (c *Config) GetMQTTBroker() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTT.Broker, c.MQTT.Port)
}

func (c *Config) Print() {
	fmt.Println("╔══════════════════════════════════════════════════════════╗")
	fmt.Println("║           NetGuard Engine - Configuration                ║")
	fmt.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Printf("Environment:     %s\n", c.Server.Environment)
	fmt.Printf("Server:          %s:%d\n", c.Server.Host, c.Server.Port)
	fmt.Printf("Backend:         %s\n", c.Backend.BaseURL)
	fmt.Printf("Alert poll:      every %s\n", c.Engine.AlertPollInterval)
	fmt.Printf("Device refresh:  every %s (auto: %t)\n", c.Engine.RefreshInterval, c.Engine.AutoRefresh)
	if c.Settings.Addr != "" {
		fmt.Printf("Settings store:  redis://%s/%d\n", c.Settings.Addr, c.Settings.DB)
	}
	if c.MQTT.Enabled {
		fmt.Printf("MQTT fan-out:    %s:%d\n", c.MQTT.Broker, c.MQTT.Port)
	}
	fmt.Println("──────────────────────────────────────────────────────────")
}
