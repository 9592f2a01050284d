package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "THLINK"
	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultDatabasePath      = "thlink.db"
	defaultLogLevel          = "info"
	defaultLogEncoding       = "json"
	defaultIssuer            = "thlink-auth"
	defaultAudience          = "thlink-api"
	defaultTokenTTLMinutes   = 60
	defaultStoreBackend      = StoreBackendSQLite
	defaultDynamoTable       = "thlink-documents"
	defaultBlobDirectory     = "blobs"
	defaultPublicBaseURL     = "http://localhost:8080"
	defaultBlobURLTTLMinutes = 15
	defaultRedisChannel      = "thlink.documents"
)

const (
	StoreBackendSQLite   = "sqlite"
	StoreBackendDynamoDB = "dynamodb"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress   string
	LogLevel      string
	LogEncoding   string
	SigningSecret string
	Issuer        string
	Audience      string
	TokenTTL      time.Duration

	StoreBackend   string
	DatabasePath   string
	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string

	BlobDirectory string
	PublicBaseURL string
	BlobURLTTL    time.Duration

	RedisAddress  string
	RedisPassword string
	RedisChannel  string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.encoding", defaultLogEncoding)
	configViper.SetDefault("auth.issuer", defaultIssuer)
	configViper.SetDefault("auth.audience", defaultAudience)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("store.backend", defaultStoreBackend)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("dynamodb.table", defaultDynamoTable)
	configViper.SetDefault("dynamodb.region", "")
	configViper.SetDefault("dynamodb.endpoint", "")
	configViper.SetDefault("blob.directory", defaultBlobDirectory)
	configViper.SetDefault("blob.public_base_url", defaultPublicBaseURL)
	configViper.SetDefault("blob.url_ttl_minutes", defaultBlobURLTTLMinutes)
	configViper.SetDefault("redis.address", "")
	configViper.SetDefault("redis.password", "")
	configViper.SetDefault("redis.channel", defaultRedisChannel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		LogLevel:       configViper.GetString("log.level"),
		LogEncoding:    configViper.GetString("log.encoding"),
		SigningSecret:  configViper.GetString("auth.signing_secret"),
		Issuer:         configViper.GetString("auth.issuer"),
		Audience:       configViper.GetString("auth.audience"),
		TokenTTL:       time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		StoreBackend:   strings.ToLower(strings.TrimSpace(configViper.GetString("store.backend"))),
		DatabasePath:   configViper.GetString("database.path"),
		DynamoTable:    configViper.GetString("dynamodb.table"),
		DynamoRegion:   configViper.GetString("dynamodb.region"),
		DynamoEndpoint: configViper.GetString("dynamodb.endpoint"),
		BlobDirectory:  configViper.GetString("blob.directory"),
		PublicBaseURL:  configViper.GetString("blob.public_base_url"),
		BlobURLTTL:     time.Duration(configViper.GetInt("blob.url_ttl_minutes")) * time.Minute,
		RedisAddress:   configViper.GetString("redis.address"),
		RedisPassword:  configViper.GetString("redis.password"),
		RedisChannel:   configViper.GetString("redis.channel"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	switch c.StoreBackend {
	case StoreBackendSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required")
		}
	case StoreBackendDynamoDB:
		if strings.TrimSpace(c.DynamoTable) == "" {
			return fmt.Errorf("dynamodb.table is required")
		}
	default:
		return fmt.Errorf("store.backend %q is not supported", c.StoreBackend)
	}
	if strings.TrimSpace(c.BlobDirectory) == "" {
		return fmt.Errorf("blob.directory is required")
	}
	if strings.TrimSpace(c.PublicBaseURL) == "" {
		return fmt.Errorf("blob.public_base_url is required")
	}
	if c.BlobURLTTL <= 0 {
		return fmt.Errorf("blob.url_ttl_minutes must be positive")
	}
	return nil
}
