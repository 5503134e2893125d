package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Host     string
		Port     string
		LogLevel string
	}
	Listener struct {
		Host       string
		Port       string
		BufferSize int
	}
	Storage struct {
		Path string
	}
	Web struct {
		StaticDir string
	}
	Probes struct {
		Addr     string
		GRPCAddr string
	}
}

// HTTPAddr is the front end bind address.
func (c Config) HTTPAddr() string { return net.JoinHostPort(c.Server.Host, c.Server.Port) }

// ListenerAddr is the datagram listener address. The router sends to it
// and the listener binds it.
func (c Config) ListenerAddr() string { return net.JoinHostPort(c.Listener.Host, c.Listener.Port) }

// Load reads configuration from the environment and, when configFile is
// not empty, from that file. Environment values win over the file.
func Load(configFile string) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("listener.host", "127.0.0.1")
	v.SetDefault("listener.port", 5000)
	v.SetDefault("listener.buffer_size", 1024)

	v.SetDefault("storage.path", "storage/data.json")

	v.SetDefault("web.static_dir", "")

	v.SetDefault("probes.addr", "")
	v.SetDefault("probes.grpc_addr", "")

	// Map envs
	v.BindEnv("server.host", "HTTP_HOST")
	v.BindEnv("server.port", "HTTP_PORT", "PORT")
	v.BindEnv("server.log_level", "LOG_LEVEL")

	v.BindEnv("listener.host", "SOCKET_HOST")
	v.BindEnv("listener.port", "SOCKET_PORT")
	v.BindEnv("listener.buffer_size", "BUFFER_SIZE")

	v.BindEnv("storage.path", "STORAGE_PATH")

	v.BindEnv("web.static_dir", "STATIC_DIR")

	v.BindEnv("probes.addr", "PROBES_ADDR")
	v.BindEnv("probes.grpc_addr", "GRPC_HEALTH_ADDR")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var c Config
	c.Server.Host = v.GetString("server.host")
	c.Server.Port = toString(v.Get("server.port"))
	c.Server.LogLevel = v.GetString("server.log_level")

	c.Listener.Host = v.GetString("listener.host")
	c.Listener.Port = toString(v.Get("listener.port"))
	c.Listener.BufferSize = v.GetInt("listener.buffer_size")

	c.Storage.Path = v.GetString("storage.path")

	c.Web.StaticDir = v.GetString("web.static_dir")

	c.Probes.Addr = v.GetString("probes.addr")
	c.Probes.GRPCAddr = v.GetString("probes.grpc_addr")

	if err := c.validate(); err != nil {
		return Config{}, err
	}

	slog.Debug("config loaded", "http", c.HTTPAddr(), "listener", c.ListenerAddr(), "storage", c.Storage.Path)
	return c, nil
}

func (c Config) validate() error {
	if c.Listener.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be greater than 0, got %d", c.Listener.BufferSize)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path must be non-empty")
	}
	for name, port := range map[string]string{"http port": c.Server.Port, "listener port": c.Listener.Port} {
		if _, err := net.LookupPort("tcp", port); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, port, err)
		}
	}
	return nil
}

func toString(v any) string { return fmt.Sprint(v) }
