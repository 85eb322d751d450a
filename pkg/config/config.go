package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidConfig = errors.New("nodebell: invalid config")

// Config - корневая структура конфигурации сервиса
// yaml теги для парсинга, проверка в Validate
type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	Server    ServerConfig    `yaml:"http-server"`
	Routes    RoutesConfig    `yaml:"routes"`
	Registry  RegistryConfig  `yaml:"registry"`
	Alert     AlertConfig     `yaml:"alert"`
	ZooKeeper ZooKeeperConfig `yaml:"zookeeper"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// RoutesConfig holds the mount prefixes of the two route groups.
type RoutesConfig struct {
	Nodes  string `yaml:"nodes"`
	Events string `yaml:"events"`
}

type RegistryConfig struct {
	// StrictLookup answers unknown nodes with 404 instead of {"node": null}.
	StrictLookup bool `yaml:"strict_lookup"`
}

type AlertConfig struct {
	Sound string `yaml:"sound"`
	// Player is the audio program; empty means detect one on PATH.
	Player     string        `yaml:"player"`
	PlayerArgs []string      `yaml:"player_args"`
	Timeout    time.Duration `yaml:"timeout"`
}

type ZooKeeperConfig struct {
	Servers        []string      `yaml:"servers"`
	Root           string        `yaml:"root"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

// Enabled reports whether the registry should be mirrored to ZooKeeper.
func (z ZooKeeperConfig) Enabled() bool {
	return len(z.Servers) > 0
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "INFO",
			JSON:  false,
		},
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Routes: RoutesConfig{
			Nodes:  "/nodes",
			Events: "/",
		},
		Alert: AlertConfig{
			Sound:   "sounds/bell.wav",
			Timeout: 30 * time.Second,
		},
		ZooKeeper: ZooKeeperConfig{
			Root:           "/nodebell",
			SessionTimeout: 5 * time.Second,
		},
	}
}

// Validate checks the values that cannot be fixed up at startup.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: http-server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	switch strings.ToUpper(c.Logger.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("%w: logger.level %q", ErrInvalidConfig, c.Logger.Level)
	}
	for name, prefix := range map[string]string{"routes.nodes": c.Routes.Nodes, "routes.events": c.Routes.Events} {
		if !strings.HasPrefix(prefix, "/") {
			return fmt.Errorf("%w: %s must start with '/', got %q", ErrInvalidConfig, name, prefix)
		}
	}
	if mountPath(c.Routes.Nodes) == mountPath(c.Routes.Events) {
		return fmt.Errorf("%w: routes.nodes %q and routes.events %q mount on the same path", ErrInvalidConfig, c.Routes.Nodes, c.Routes.Events)
	}
	if c.Alert.Sound == "" {
		return fmt.Errorf("%w: alert.sound is empty", ErrInvalidConfig)
	}
	if c.ZooKeeper.Enabled() && !strings.HasPrefix(c.ZooKeeper.Root, "/") {
		return fmt.Errorf("%w: zookeeper.root must be absolute, got %q", ErrInvalidConfig, c.ZooKeeper.Root)
	}
	return nil
}

// mountPath is the path a prefix is mounted on; "/a" and "/a/" are the same.
func mountPath(prefix string) string {
	if p := strings.TrimRight(prefix, "/"); p != "" {
		return p
	}
	return "/"
}
