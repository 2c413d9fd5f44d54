package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required (use -config or -c)")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes YAML, applies environment overrides and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvironmentOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

var (
	EnvOAuth2ClientID          = "AUTHSESSION_OAUTH2_CLIENT_ID"
	EnvOAuth2ClientSecret      = "AUTHSESSION_OAUTH2_CLIENT_SECRET"
	EnvOAuth2IssuerURL         = "AUTHSESSION_OAUTH2_ISSUER_URL"
	EnvOAuth2AuthURL           = "AUTHSESSION_OAUTH2_AUTH_URL"
	EnvOAuth2TokenURL          = "AUTHSESSION_OAUTH2_TOKEN_URL"
	EnvOAuth2RedirectURL       = "AUTHSESSION_OAUTH2_REDIRECT_URL"
	EnvServerExternalURL       = "AUTHSESSION_SERVER_EXTERNAL_URL"
	EnvServerPort              = "AUTHSESSION_SERVER_PORT"
	EnvSessionRefreshThreshold = "AUTHSESSION_SESSION_REFRESH_THRESHOLD"
	EnvStoreType               = "AUTHSESSION_STORE_TYPE"
	EnvRedisAddress            = "AUTHSESSION_REDIS_ADDRESS"
	EnvRedisPassword           = "AUTHSESSION_REDIS_PASSWORD"
	EnvRedisUsername           = "AUTHSESSION_REDIS_USERNAME"
	EnvRedisSentinelUsername   = "AUTHSESSION_REDIS_SENTINEL_USERNAME"
	EnvRedisSentinelPassword   = "AUTHSESSION_REDIS_SENTINEL_PASSWORD"
	EnvAPIUpstreamURL          = "AUTHSESSION_API_UPSTREAM_URL"
)

func applyEnvironmentOverrides(config *Config) {
	if clientID := os.Getenv(EnvOAuth2ClientID); clientID != "" {
		config.OAuth2.ClientID = clientID
	}

	if clientSecret := os.Getenv(EnvOAuth2ClientSecret); clientSecret != "" {
		config.OAuth2.ClientSecret = clientSecret
	}

	if issuerURL := os.Getenv(EnvOAuth2IssuerURL); issuerURL != "" {
		config.OAuth2.IssuerURL = issuerURL
	}

	if authURL := os.Getenv(EnvOAuth2AuthURL); authURL != "" {
		config.OAuth2.AuthURL = authURL
	}

	if tokenURL := os.Getenv(EnvOAuth2TokenURL); tokenURL != "" {
		config.OAuth2.TokenURL = tokenURL
	}

	if redirectURL := os.Getenv(EnvOAuth2RedirectURL); redirectURL != "" {
		config.OAuth2.RedirectURI = redirectURL
	}

	if externalURL := os.Getenv(EnvServerExternalURL); externalURL != "" {
		config.Server.ExternalURL = externalURL
	}

	if portStr := os.Getenv(EnvServerPort); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			config.Server.Port = port
		}
	}

	if thresholdStr := os.Getenv(EnvSessionRefreshThreshold); thresholdStr != "" {
		if threshold, err := time.ParseDuration(thresholdStr); err == nil {
			config.Session.RefreshThreshold = threshold
		}
	}

	if upstreamURL := os.Getenv(EnvAPIUpstreamURL); upstreamURL != "" {
		config.API.UpstreamURL = upstreamURL
	}

	if storeType := os.Getenv(EnvStoreType); storeType != "" {
		config.Store.Type = storeType
	}

	if redisAddress := os.Getenv(EnvRedisAddress); redisAddress != "" {
		if config.Redis == nil {
			config.Redis = &RedisConfig{}
		}
		config.Redis.Address = redisAddress
	}

	if redisPassword := os.Getenv(EnvRedisPassword); redisPassword != "" {
		if config.Redis == nil {
			config.Redis = &RedisConfig{}
		}
		config.Redis.Password = redisPassword
	}

	if redisUsername := os.Getenv(EnvRedisUsername); redisUsername != "" {
		if config.Redis == nil {
			config.Redis = &RedisConfig{}
		}
		config.Redis.Username = redisUsername
	}

	if sentinelUsername := os.Getenv(EnvRedisSentinelUsername); sentinelUsername != "" {
		if config.Redis == nil {
			config.Redis = &RedisConfig{}
		}
		if config.Redis.Sentinel == nil {
			config.Redis.Sentinel = &RedisSentinelConfig{}
		}
		config.Redis.Sentinel.SentinelUsername = sentinelUsername
	}

	if sentinelPassword := os.Getenv(EnvRedisSentinelPassword); sentinelPassword != "" {
		if config.Redis == nil {
			config.Redis = &RedisConfig{}
		}
		if config.Redis.Sentinel == nil {
			config.Redis.Sentinel = &RedisSentinelConfig{}
		}
		config.Redis.Sentinel.SentinelPassword = sentinelPassword
	}
}

func validateConfig(config *Config) error {

	err := config.validateServerConfig()
	if err != nil {
		return err
	}

	err = config.validateOAuth2Config()
	if err != nil {
		return err
	}

	err = config.validateLogConfig()
	if err != nil {
		return err
	}

	err = config.validateCORSConfig()
	if err != nil {
		return err
	}

	err = config.validateSessionConfig()
	if err != nil {
		return err
	}

	err = config.validateRenewalConfig()
	if err != nil {
		return err
	}

	err = config.validateAPIConfig()
	if err != nil {
		return err
	}

	err = config.validateStoreConfig()
	if err != nil {
		return err
	}

	if config.Store.Type == "redis" {
		err = config.validateRedisConfig()
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateServerConfig() error {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerConfig.Port
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if err := validateURL(c.Server.ExternalURL, "server.external_url"); err != nil {
		return err
	}
	c.Server.ExternalURL = strings.TrimSuffix(c.Server.ExternalURL, "/")

	if c.Server.CallbackPath == "" {
		c.Server.CallbackPath = DefaultServerConfig.CallbackPath
	} else if !strings.HasPrefix(c.Server.CallbackPath, "/") {
		return fmt.Errorf("server.callback_path must start with '/'")
	}

	if c.Server.Debug != nil && c.Server.Debug.Enabled {
		if c.Server.Debug.Host == "" {
			c.Server.Debug.Host = DefaultDebugConfig.Host
		}
		if c.Server.Debug.Port <= 0 || c.Server.Debug.Port >= 65535 {
			c.Server.Debug.Port = DefaultDebugConfig.Port
		}
	}

	return nil
}

func (c *Config) validateOAuth2Config() error {
	if c.OAuth2.ClientID == "" {
		return fmt.Errorf("oauth2.client_id is required")
	}

	// explicit endpoints win; the issuer is only needed when one is missing
	if c.OAuth2.AuthURL == "" || c.OAuth2.TokenURL == "" {
		if c.OAuth2.IssuerURL == "" {
			return fmt.Errorf("oauth2.issuer_url is required unless both auth_url and token_url are set")
		}
		if err := validateURL(c.OAuth2.IssuerURL, "oauth2.issuer_url"); err != nil {
			return err
		}
	}

	if c.OAuth2.AuthURL != "" {
		if err := validateURL(c.OAuth2.AuthURL, "oauth2.auth_url"); err != nil {
			return err
		}
	}

	if c.OAuth2.TokenURL != "" {
		if err := validateURL(c.OAuth2.TokenURL, "oauth2.token_url"); err != nil {
			return err
		}
	}

	if c.OAuth2.RedirectURI == "" {
		c.OAuth2.RedirectURI = c.Server.ExternalURL + c.Server.CallbackPath
	}
	if err := validateURL(c.OAuth2.RedirectURI, "oauth2.redirect_url"); err != nil {
		return err
	}
	// the callback is served by this agent, and renewal answers are only
	// accepted from the external origin
	if Origin(c.OAuth2.RedirectURI) != Origin(c.Server.ExternalURL) {
		return fmt.Errorf("oauth2.redirect_url must be on the server.external_url origin %s", Origin(c.Server.ExternalURL))
	}

	if len(c.OAuth2.Scopes) == 0 {
		c.OAuth2.Scopes = DefaultOAuth2Config.Scopes
	}

	switch c.OAuth2.Prompt {
	case "", "login", "consent", "select_account":
	default:
		return fmt.Errorf("invalid oauth2.prompt: %s, options are login, consent, select_account or empty", c.OAuth2.Prompt)
	}

	return nil
}

func (c *Config) validateLogConfig() error {
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogConfig.Format
	} else {
		switch c.Log.Format {
		case "text", "json":
		default:
			return fmt.Errorf("invalid log format: %s, options are text or json", c.Log.Format)
		}
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogConfig.Level
	} else {
		switch c.Log.Level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("invalid log level: %s, options are debug, info, warn, error", c.Log.Level)
		}
	}

	return nil
}

func (c *Config) validateCORSConfig() error {
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = DefaultCORSConfig.AllowedOrigins
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = DefaultCORSConfig.AllowedMethods
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = DefaultCORSConfig.AllowedHeaders
	}
	if c.CORS.MaxAgeSeconds == 0 {
		c.CORS.MaxAgeSeconds = DefaultCORSConfig.MaxAgeSeconds
	}

	return nil
}

func (c *Config) validateSessionConfig() error {
	if c.Session.CheckInterval == 0 {
		c.Session.CheckInterval = DefaultSessionConfig.CheckInterval
	} else if c.Session.CheckInterval < time.Second {
		return fmt.Errorf("session.check_interval cannot be less than 1 second")
	}

	if c.Session.RefreshThreshold == 0 {
		c.Session.RefreshThreshold = DefaultSessionConfig.RefreshThreshold
	} else if c.Session.RefreshThreshold < 0 {
		return fmt.Errorf("session.refresh_threshold must be positive")
	}

	// a threshold at or below the polling interval lets tokens expire between checks
	if c.Session.RefreshThreshold <= c.Session.CheckInterval {
		return fmt.Errorf("session.refresh_threshold (%s) must be greater than session.check_interval (%s)",
			c.Session.RefreshThreshold, c.Session.CheckInterval)
	}

	if c.Session.DefaultPath == "" {
		c.Session.DefaultPath = DefaultSessionConfig.DefaultPath
	} else if !strings.HasPrefix(c.Session.DefaultPath, "/") {
		return fmt.Errorf("session.default_path must start with '/'")
	}

	if c.Session.ExchangeTimeout <= 0 {
		c.Session.ExchangeTimeout = DefaultSessionConfig.ExchangeTimeout
	}

	return nil
}

func (c *Config) validateRenewalConfig() error {
	if c.Renewal.Timeout <= 0 {
		c.Renewal.Timeout = DefaultRenewalConfig.Timeout
	}

	if c.Renewal.Loader == "" {
		c.Renewal.Loader = DefaultRenewalConfig.Loader
	} else {
		switch c.Renewal.Loader {
		case "ui", "http":
		default:
			return fmt.Errorf("invalid renewal loader: %s, options are 'ui' or 'http'", c.Renewal.Loader)
		}
	}

	return nil
}

func (c *Config) validateAPIConfig() error {
	if c.API.PathPrefix == "" {
		c.API.PathPrefix = DefaultAPIConfig.PathPrefix
	}

	if !strings.HasPrefix(c.API.PathPrefix, "/") {
		return fmt.Errorf("api.path_prefix must start with '/': %s", c.API.PathPrefix)
	}
	c.API.PathPrefix = strings.TrimSuffix(c.API.PathPrefix, "/")

	if c.API.UpstreamURL == "" {
		return nil
	}

	return validateURL(c.API.UpstreamURL, "api.upstream_url")
}

func (c *Config) validateStoreConfig() error {
	if c.Store.Type == "" {
		c.Store.Type = DefaultStoreConfig.Type
	}

	switch c.Store.Type {
	case "memory":
	case "file":
		if c.Store.FilePath == "" {
			c.Store.FilePath = DefaultStoreConfig.FilePath
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			c.Store.SQLitePath = DefaultStoreConfig.SQLitePath
		}
	case "redis":
		if c.Redis == nil {
			return fmt.Errorf("redis configuration must be enabled to use redis for the credential store")
		}
	default:
		return fmt.Errorf("invalid store type: %s, must be 'memory', 'file', 'sqlite' or 'redis'", c.Store.Type)
	}

	if c.Store.KeyPrefix == "" {
		c.Store.KeyPrefix = DefaultStoreConfig.KeyPrefix
	}

	return nil
}

func (c *Config) validateRedisConfig() error {
	if c.Redis == nil {
		return fmt.Errorf("redis config is nil")
	}

	if c.Redis.Sentinel == nil {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis address is required")
		}

		if _, _, err := net.SplitHostPort(c.Redis.Address); err != nil {
			return fmt.Errorf("invalid redis address format (expected host:port): %w", err)
		}
	}

	if c.Redis.Index < 0 {
		return fmt.Errorf("redis index must be non-negative, got %d", c.Redis.Index)
	}

	const maxRedisDB = 15
	if c.Redis.Index > maxRedisDB {
		return fmt.Errorf("redis index %d exceeds typical maximum of %d", c.Redis.Index, maxRedisDB)
	}

	if c.Redis.Sentinel != nil {
		if c.Redis.Sentinel.MasterName == "" {
			return fmt.Errorf("sentinel master_name is required")
		}
		if len(c.Redis.Sentinel.SentinelAddresses) == 0 {
			return fmt.Errorf("at least one sentinel address is required")
		}
	}
	return nil
}
