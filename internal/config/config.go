package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// This file defines the configuration structures used by viper_config.go
// The actual loading is handled by viper in viper_config.go

// Config is the full platform configuration
type Config struct {
	Server   ServerSettings  `mapstructure:"server"`
	Sessions SessionSettings `mapstructure:"sessions"`
	Rooms    RoomSettings    `mapstructure:"rooms"`
	Runtime  RuntimeSettings `mapstructure:"runtime"`
	Storage  StorageSettings `mapstructure:"storage"`
}

// ServerSettings contains the HTTP server settings
type ServerSettings struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"readtimeout"`
	WriteTimeout    time.Duration `mapstructure:"writetimeout"`
	IdleTimeout     time.Duration `mapstructure:"idletimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdowntimeout"`
	RequestTimeout  time.Duration `mapstructure:"requesttimeout"`

	// Rate limiting (using golang.org/x/time/rate)
	RateLimit      float64 `mapstructure:"ratelimit"`
	RateLimitBurst int     `mapstructure:"ratelimitburst"`

	// Request limits
	MaxRequestSize int64 `mapstructure:"maxrequestsize"`

	LogLevel  string `mapstructure:"loglevel"`
	LogFormat string `mapstructure:"logformat"`
}

// SessionSettings controls login-session liveness. Windows are in seconds,
// matching the environment variable contract.
type SessionSettings struct {
	TimeoutSeconds        int `mapstructure:"timeoutseconds"`
	ConcurrentLockSeconds int `mapstructure:"concurrentlockseconds"`
	OnlineWindowSeconds   int `mapstructure:"onlinewindowseconds"`
}

// Timeout is the session TTL since the last heartbeat
func (s SessionSettings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// ConcurrentLock is the re-login lock window
func (s SessionSettings) ConcurrentLock() time.Duration {
	return time.Duration(s.ConcurrentLockSeconds) * time.Second
}

// OnlineWindow is the freshness window for the player-list online badge
func (s SessionSettings) OnlineWindow() time.Duration {
	return time.Duration(s.OnlineWindowSeconds) * time.Second
}

// RoomSettings controls room liveness and garbage collection
type RoomSettings struct {
	HeartbeatTimeoutSeconds int `mapstructure:"heartbeattimeoutseconds"`
	FinishedGraceSeconds    int `mapstructure:"finishedgraceseconds"`
	MaxRooms                int `mapstructure:"maxrooms"`
}

// HeartbeatTimeout is how long a member may go silent before being stale
func (r RoomSettings) HeartbeatTimeout() time.Duration {
	return time.Duration(r.HeartbeatTimeoutSeconds) * time.Second
}

// FinishedGrace is how long finished rooms stay visible before GC
func (r RoomSettings) FinishedGrace() time.Duration {
	return time.Duration(r.FinishedGraceSeconds) * time.Second
}

// RuntimeSettings controls spawned game servers
type RuntimeSettings struct {
	BindHost   string `mapstructure:"bindhost"`
	PublicHost string `mapstructure:"publichost"`
}

// StorageSettings controls on-disk layout
type StorageSettings struct {
	DataDir string `mapstructure:"datadir"`
}

// DataFile is the path of the persisted document
func (s StorageSettings) DataFile() string {
	return filepath.Join(s.DataDir, "data.json")
}

// GamesDir is where uploaded bundles are kept
func (s StorageSettings) GamesDir() string {
	return filepath.Join(s.DataDir, "games")
}

// RuntimeDir is the extraction cache for spawned game servers
func (s StorageSettings) RuntimeDir() string {
	return filepath.Join(s.DataDir, "runtime")
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Port:            "5000",
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
			RateLimit:       50,
			RateLimitBurst:  100,
			MaxRequestSize:  64 << 20, // bundles travel base64-encoded in JSON bodies
			LogLevel:        "info",
			LogFormat:       "text",
		},
		Sessions: SessionSettings{
			TimeoutSeconds:        3600,
			ConcurrentLockSeconds: 30,
			OnlineWindowSeconds:   20,
		},
		Rooms: RoomSettings{
			HeartbeatTimeoutSeconds: 15,
			FinishedGraceSeconds:    30,
			MaxRooms:                0, // unlimited
		},
		Runtime: RuntimeSettings{
			BindHost:   "0.0.0.0",
			PublicHost: "", // resolved hostname when empty
		},
		Storage: StorageSettings{
			DataDir: "storage",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port must be set")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host must be set")
	}
	if c.Sessions.TimeoutSeconds <= 0 {
		return fmt.Errorf("session timeout must be positive")
	}
	if c.Sessions.ConcurrentLockSeconds < 0 {
		return fmt.Errorf("concurrent login lock cannot be negative")
	}
	if c.Rooms.HeartbeatTimeoutSeconds <= 0 {
		return fmt.Errorf("room heartbeat timeout must be positive")
	}
	if c.Rooms.FinishedGraceSeconds < 0 {
		return fmt.Errorf("finished room grace cannot be negative")
	}
	if c.Rooms.MaxRooms < 0 {
		return fmt.Errorf("max rooms cannot be negative")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage data dir must be set")
	}
	return nil
}
