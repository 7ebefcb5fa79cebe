package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration using Viper
// Priority order: Environment variables > Config file > Defaults
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file details
	v.SetConfigName("server")
	v.SetConfigType("yaml")

	// Add config paths
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/gamedock")
	}

	// Enable environment variable binding
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind the documented environment variables. The second names on the
	// session bindings are kept for compatibility with older deployments.
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")
	v.BindEnv("server.loglevel", "LOG_LEVEL")
	v.BindEnv("server.logformat", "LOG_FORMAT")
	v.BindEnv("server.ratelimit", "RATE_LIMIT")
	v.BindEnv("server.ratelimitburst", "RATE_LIMIT_BURST")
	v.BindEnv("server.maxrequestsize", "MAX_REQUEST_SIZE")
	v.BindEnv("sessions.timeoutseconds", "SESSION_TIMEOUT", "SESSION_TTL")
	v.BindEnv("sessions.concurrentlockseconds", "CONCURRENT_LOGIN_LOCK", "SESSION_LOGIN_LOCK")
	v.BindEnv("sessions.onlinewindowseconds", "ONLINE_TIMEOUT")
	v.BindEnv("rooms.heartbeattimeoutseconds", "ROOM_HEARTBEAT_TIMEOUT")
	v.BindEnv("rooms.finishedgraceseconds", "FINISHED_ROOM_GRACE_SECONDS")
	v.BindEnv("rooms.maxrooms", "MAX_ROOMS")
	v.BindEnv("runtime.bindhost", "GAME_SERVER_HOST")
	v.BindEnv("runtime.publichost", "GAME_SERVER_PUBLIC_HOST")
	v.BindEnv("storage.datadir", "DATA_DIR")

	// Server defaults
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.readtimeout", "15s")
	v.SetDefault("server.writetimeout", "60s")
	v.SetDefault("server.idletimeout", "60s")
	v.SetDefault("server.shutdowntimeout", "30s")
	v.SetDefault("server.requesttimeout", "60s")
	v.SetDefault("server.ratelimit", 50.0)
	v.SetDefault("server.ratelimitburst", 100)
	v.SetDefault("server.maxrequestsize", 64<<20)
	v.SetDefault("server.loglevel", "info")
	v.SetDefault("server.logformat", "text")

	// Session defaults
	v.SetDefault("sessions.timeoutseconds", 3600)
	v.SetDefault("sessions.concurrentlockseconds", 30)
	v.SetDefault("sessions.onlinewindowseconds", 20)

	// Room defaults
	v.SetDefault("rooms.heartbeattimeoutseconds", 15)
	v.SetDefault("rooms.finishedgraceseconds", 30)
	v.SetDefault("rooms.maxrooms", 0)

	// Runtime defaults
	v.SetDefault("runtime.bindhost", "0.0.0.0")
	v.SetDefault("runtime.publichost", "")

	// Storage defaults
	v.SetDefault("storage.datadir", "storage")

	// Try to read config file (it's optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if strings.Contains(err.Error(), "no such file or directory") {
				// File doesn't exist, continue with defaults
			} else {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
		// Config file not found; continue with env vars and defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
