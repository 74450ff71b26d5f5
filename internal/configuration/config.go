package configuration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. BLOGCHAT_AUTH_JWT_SECRET.
const EnvPrefix = "BLOGCHAT"

type ServerConfig struct {
	AppPort        int      `json:"app_port" envconfig:"APP_PORT" validate:"gt=0,lt=65536"`
	SocketRoute    string   `json:"socket_route" envconfig:"SOCKET_ROUTE" validate:"required"`
	AllowedOrigins []string `json:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

type MongoConfig struct {
	Uri                string `json:"uri" envconfig:"URI" validate:"required"`
	Database           string `json:"database" envconfig:"DATABASE" validate:"required"`
	MessagesCollection string `json:"messagesCollection" envconfig:"MESSAGES_COLLECTION" validate:"required"`
	UsersCollection    string `json:"usersCollection" envconfig:"USERS_COLLECTION" validate:"required"`
}

// RedisConfig configures the last-seen mirror. An empty Addr keeps last-seen in memory.
type RedisConfig struct {
	Addr     string `json:"addr" envconfig:"ADDR"`
	Password string `json:"password" envconfig:"PASSWORD"`
	DB       int    `json:"db" envconfig:"DB"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" envconfig:"JWT_SECRET" validate:"required"`
}

type ChatConfig struct {
	DefaultHistoryLimit int64 `json:"default_history_limit" envconfig:"DEFAULT_HISTORY_LIMIT" validate:"gt=0"`
	MaxHistoryLimit     int64 `json:"max_history_limit" envconfig:"MAX_HISTORY_LIMIT" validate:"gtefield=DefaultHistoryLimit"`
	InboundBuffer       int   `json:"inbound_buffer" envconfig:"INBOUND_BUFFER" validate:"gt=0"`
	SendBuffer          int   `json:"send_buffer" envconfig:"SEND_BUFFER" validate:"gt=0"`
}

type LogConfig struct {
	Development bool `json:"development" envconfig:"DEVELOPMENT"`
}

type Config struct {
	Server ServerConfig `json:"server" envconfig:"SERVER"`
	Mongo  MongoConfig  `json:"mongo" envconfig:"MONGO"`
	Redis  RedisConfig  `json:"redis" envconfig:"REDIS"`
	Auth   AuthConfig   `json:"auth" envconfig:"AUTH"`
	Chat   ChatConfig   `json:"chat" envconfig:"CHAT"`
	Log    LogConfig    `json:"log" envconfig:"LOG"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			AppPort:     5000,
			SocketRoute: "ws",
		},
		Mongo: MongoConfig{
			Uri:                "mongodb://localhost:27017",
			Database:           "blog",
			MessagesCollection: "messages",
			UsersCollection:    "users",
		},
		Chat: ChatConfig{
			DefaultHistoryLimit: 50,
			MaxHistoryLimit:     100,
			InboundBuffer:       64,
			SendBuffer:          256,
		},
	}
}

// LoadConfig layers defaults, the JSON file at configPath (optional) and BLOGCHAT_*
// environment variables, after loading a .env file when one exists.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := defaultConfig()

	file, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// env only
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	default:
		if err := json.Unmarshal(file, &config); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
