package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Client   ClientConfig   `mapstructure:"client"`
}

type ServerConfig struct {
	HTTPAddress    string        `mapstructure:"http_address"`
	RPCAddress     string        `mapstructure:"rpc_address"`
	GRPCAddress    string        `mapstructure:"grpc_address"`
	HeartbeatEvery time.Duration `mapstructure:"heartbeat_every"`
	GhostAfter     time.Duration `mapstructure:"ghost_after"`
	SweepEvery     time.Duration `mapstructure:"sweep_every"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	ActionRate     float64       `mapstructure:"action_rate"`
	ActionBurst    int           `mapstructure:"action_burst"`
}

type DatabaseConfig struct {
	// Driver is one of postgres, gorm, sqlite or memory.
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// ClientConfig configures the terminal peer in client/.
type ClientConfig struct {
	ServerURL string `mapstructure:"server_url"`
	// UserID identifies the same person across reconnects. Left empty, the
	// client makes one up for this run only.
	UserID    string `mapstructure:"user_id"`
	Room      string `mapstructure:"room"`
	Name      string `mapstructure:"name"`
	Color     string `mapstructure:"color"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.grpc_address", ":8082")
	v.SetDefault("server.heartbeat_every", 5*time.Second)
	v.SetDefault("server.ghost_after", 15*time.Second)
	v.SetDefault("server.sweep_every", time.Second)
	v.SetDefault("server.idle_timeout", 2*time.Minute)
	v.SetDefault("server.action_rate", 20.0)
	v.SetDefault("server.action_burst", 40)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.sqlite.path", "roomsync.db")

	v.SetDefault("client.server_url", "ws://localhost:8080/ws")
	v.SetDefault("client.room", "")
	v.SetDefault("client.user_id", "")
	v.SetDefault("client.name", "Guest")
	v.SetDefault("client.color", "#3b82f6")
}

// LoadConfig reads config.yaml from path. A missing file is not an error:
// defaults and ROOMSYNC_* environment variables still apply. A .env file in
// the working directory is loaded first when present.
func LoadConfig(path string) (config *Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("roomsync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	err = v.Unmarshal(&config)
	return
}
