package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration. Defaults come from the constants in
// this package, then .env, then the optional YAML file, then the environment.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
	LogJSON    bool   `yaml:"log_json"`

	Storage struct {
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
		DisableRedis  bool   `yaml:"disable_redis"`
		DataDir       string `yaml:"data_dir"`
	} `yaml:"storage"`

	LLM struct {
		Provider     string `yaml:"provider"`
		GeminiAPIKey string `yaml:"gemini_api_key"`
		GeminiModel  string `yaml:"gemini_model"`
		OpenAIAPIKey string `yaml:"openai_api_key"`
		OpenAIModel  string `yaml:"openai_model"`
	} `yaml:"llm"`

	Upload struct {
		Backend     string `yaml:"backend"`
		EndpointURL string `yaml:"endpoint_url"`
		S3Bucket    string `yaml:"s3_bucket"`
		S3Region    string `yaml:"s3_region"`
		S3Endpoint  string `yaml:"s3_endpoint"`
		S3AccessKey string `yaml:"s3_access_key"`
		S3SecretKey string `yaml:"s3_secret_key"`
	} `yaml:"upload"`

	Auth struct {
		Token     string `yaml:"token"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
}

// Default returns the configuration described by the package constants.
func Default() Config {
	var c Config
	c.ListenAddr = ServerListenAddr
	c.LogLevel = "debug"
	if IS_PROD {
		c.LogLevel = "info"
		c.LogJSON = true
	}
	c.Storage.RedisAddr = RedisAddr
	c.Storage.RedisDB = RedisStoreDB
	c.Storage.DataDir = DefaultDataDir
	c.LLM.Provider = DefaultLLMProvider
	c.LLM.GeminiModel = GeminiModelName
	c.LLM.OpenAIModel = OpenAIModelName
	c.Upload.Backend = "simulated"
	return c
}

// Load builds the configuration. A missing .env or YAML file is not an error.
func Load(path string) (Config, error) {
	c := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return c, fmt.Errorf("loading .env: %w", err)
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return c, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &c); err != nil {
				return c, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	applyEnv(&c)
	return c, nil
}

func applyEnv(c *Config) {
	setString(&c.ListenAddr, "ASSIST_LISTEN_ADDR")
	setString(&c.LogLevel, "ASSIST_LOG_LEVEL")
	setBool(&c.LogJSON, "ASSIST_LOG_JSON")

	setString(&c.Storage.RedisAddr, "REDIS_ADDR")
	setString(&c.Storage.RedisPassword, "REDIS_PASSWORD")
	setBool(&c.Storage.DisableRedis, "ASSIST_DISABLE_REDIS")
	setString(&c.Storage.DataDir, "ASSIST_DATA_DIR")
	if v, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		c.Storage.RedisDB = v
	}

	setString(&c.LLM.Provider, "ASSIST_LLM_PROVIDER")
	setString(&c.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.LLM.GeminiModel, "GEMINI_MODEL")
	setString(&c.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.LLM.OpenAIModel, "OPENAI_MODEL")

	setString(&c.Upload.Backend, "ASSIST_UPLOAD_BACKEND")
	setString(&c.Upload.EndpointURL, "ASSIST_UPLOAD_URL")
	setString(&c.Upload.S3Bucket, "S3_BUCKET")
	setString(&c.Upload.S3Region, "S3_REGION")
	setString(&c.Upload.S3Endpoint, "S3_ENDPOINT")
	setString(&c.Upload.S3AccessKey, "S3_ACCESS_KEY")
	setString(&c.Upload.S3SecretKey, "S3_SECRET_KEY")

	setString(&c.Auth.Token, "ASSIST_AUTH_TOKEN")
	setString(&c.Auth.JWTSecret, "ASSIST_JWT_SECRET")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		*dst = v
	}
}
