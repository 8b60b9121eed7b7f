package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"telecom-chat/internal/domain"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr            string `validate:"required"`
		AllowedOrigins  []string
		ShutdownTimeout time.Duration `validate:"gt=0"`
	}
	Log struct {
		Level  string `validate:"oneof=trace debug info warn warning error fatal panic"`
		Format string `validate:"oneof=text json"`
	}
	Database struct {
		URL string `validate:"required"`
	}
	Auth struct {
		JWTSecret       string `validate:"required"`
		TokenTTLMinutes int    `validate:"gt=0"`
		Users           []User `validate:"dive"`
	}
	Model struct {
		Path          string `validate:"required"`
		Name          string
		BaseURL       string `validate:"required,url"`
		APIKey        string
		Device        string        `validate:"oneof=auto cpu cuda mps"`
		DType         string        `validate:"oneof=auto float32 float16 bfloat16"`
		MaxNewTokens  int           `validate:"gt=0"`
		Temperature   float32       `validate:"gte=0,lte=2"`
		MaxConcurrent int           `validate:"gt=0"`
		Timeout       time.Duration `validate:"gt=0"`
		VerifyServer  bool
		Source        string
	}
	Storage struct {
		Region   string
		Endpoint string
	}
	AWS struct {
		Profile string
	}
	Agent struct {
		MaxSteps int `validate:"gt=0"`
	}
}

// User is a credential record as it appears in configuration.
type User struct {
	Username       string `mapstructure:"username" validate:"required"`
	FullName       string `mapstructure:"full_name"`
	Email          string `mapstructure:"email" validate:"omitempty,email"`
	HashedPassword string `mapstructure:"hashed_password" validate:"required"`
	Disabled       bool   `mapstructure:"disabled"`
}

// DomainUsers converts the configured credential table into domain records.
func (c Config) DomainUsers() []domain.User {
	users := make([]domain.User, len(c.Auth.Users))
	for i, u := range c.Auth.Users {
		users[i] = domain.User{
			Username:       u.Username,
			FullName:       u.FullName,
			Email:          u.Email,
			HashedPassword: u.HashedPassword,
			Disabled:       u.Disabled,
		}
	}
	return users
}

// ModelName is the configured model id, or the base name of the model path.
func (c Config) ModelName() string {
	if name := strings.TrimSpace(c.Model.Name); name != "" {
		return name
	}
	return filepath.Base(filepath.Clean(c.Model.Path))
}

// TokenTTL is the access-token lifetime.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

// demoUser's password is "secret".
var demoUser = map[string]any{
	"username":        "johndoe",
	"full_name":       "John Doe",
	"email":           "johndoe@example.com",
	"hashed_password": "$2b$12$EixZaYVK1fsbw1ZfbX3OXePaWxn96p36WQoeG6Lruj3vjPGga31lW",
	"disabled":        false,
}

// Load reads configuration from environment variables and an optional config
// file. An empty configFile searches the working directory for config.*.
func Load(configFile string) (Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	v.SetEnvPrefix("CHATBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Names the service has always honoured.
	_ = v.BindEnv("model.path", "CHATBOX_MODEL_PATH", "MODEL_PATH")
	_ = v.BindEnv("database.url", "CHATBOX_DATABASE_URL", "DATABASE_URL")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8000")
	v.SetDefault("server.allowedorigins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdowntimeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.url", "sqlite://./chatbox.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlminutes", 30)
	v.SetDefault("auth.users", []map[string]any{demoUser})
	v.SetDefault("model.path", "models/Qwen1.5-7B")
	v.SetDefault("model.name", "")
	v.SetDefault("model.baseurl", "http://localhost:8001/v1")
	v.SetDefault("model.apikey", "local")
	v.SetDefault("model.device", "auto")
	v.SetDefault("model.dtype", "auto")
	v.SetDefault("model.maxnewtokens", 512)
	v.SetDefault("model.temperature", 0.7)
	v.SetDefault("model.maxconcurrent", 2)
	v.SetDefault("model.timeout", 120*time.Second)
	v.SetDefault("model.verifyserver", true)
	v.SetDefault("model.source", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("agent.maxsteps", 3)
}

// loadDotEnv exports KEY=VALUE lines from path without overriding variables
// that are already set.
func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
