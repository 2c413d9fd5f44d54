package config

import (
	"time"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	OAuth2  OAuth2Config  `yaml:"oauth2"`
	Log     LogConfig     `yaml:"log"`
	CORS    CORSConfig    `yaml:"cors"`
	Session SessionConfig `yaml:"session"`
	Renewal RenewalConfig `yaml:"renewal"`
	API     APIConfig     `yaml:"api"`
	Store   StoreConfig   `yaml:"store"`
	Redis   *RedisConfig  `yaml:"redis"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// ExternalURL is the origin the browser sees the agent under. It is also
	// the only origin accepted for renewal messages.
	ExternalURL  string             `yaml:"external_url"`
	CallbackPath string             `yaml:"callback_path"`
	Debug        *ServerDebugConfig `yaml:"debug"`
}

var DefaultServerConfig = ServerConfig{
	Port:         8080,
	CallbackPath: "/callback",
}

type ServerDebugConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

var DefaultDebugConfig = ServerDebugConfig{
	Enabled: false,
	Host:    "localhost",
	Port:    5123,
}

type OAuth2Config struct {
	ClientID string `yaml:"client_id"`
	// ClientSecret is optional, public clients rely on PKCE alone.
	ClientSecret string   `yaml:"client_secret"`
	IssuerURL    string   `yaml:"issuer_url"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	RedirectURI  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
	Prompt       string   `yaml:"prompt"`
}

var DefaultOAuth2Config = OAuth2Config{
	Scopes: []string{"openid", "profile", "email"},
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var DefaultLogConfig = LogConfig{
	Level:  "info",
	Format: "text",
}

type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	ExposedHeaders   []string `yaml:"exposed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAgeSeconds    int      `yaml:"max_age_seconds"`
}

var DefaultCORSConfig = CORSConfig{
	AllowedOrigins: []string{"http://localhost:5173"},
	AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	AllowedHeaders: []string{"*"},
	MaxAgeSeconds:  300,
}

type SessionConfig struct {
	CheckInterval    time.Duration `yaml:"check_interval"`
	RefreshThreshold time.Duration `yaml:"refresh_threshold"`
	DefaultPath      string        `yaml:"default_path"`
	ExchangeTimeout  time.Duration `yaml:"exchange_timeout"`
	UseRefreshToken  bool          `yaml:"use_refresh_token"`
}

var DefaultSessionConfig = SessionConfig{
	CheckInterval:    30 * time.Second,
	RefreshThreshold: 5 * time.Minute,
	DefaultPath:      "/",
	ExchangeTimeout:  15 * time.Second,
}

type RenewalConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Loader  string        `yaml:"loader"` // "ui" or "http"
}

var DefaultRenewalConfig = RenewalConfig{
	Timeout: 20 * time.Second,
	Loader:  "ui",
}

// APIConfig describes the upstream API proxied with the session's access token.
// The proxy is disabled when UpstreamURL is empty.
type APIConfig struct {
	UpstreamURL string `yaml:"upstream_url"`
	PathPrefix  string `yaml:"path_prefix"`
}

var DefaultAPIConfig = APIConfig{
	PathPrefix: "/api/upstream",
}

type StoreConfig struct {
	Type       string `yaml:"type"` // "memory", "file", "redis" or "sqlite"
	FilePath   string `yaml:"file_path"`
	SQLitePath string `yaml:"sqlite_path"`
	KeyPrefix  string `yaml:"key_prefix"`
}

var DefaultStoreConfig = StoreConfig{
	Type:       "memory",
	FilePath:   "data/session.json",
	SQLitePath: "data/session.db",
	KeyPrefix:  "authsession:",
}

type RedisConfig struct {
	Address  string               `yaml:"address"`
	Username string               `yaml:"username"`
	Password string               `yaml:"password"`
	Sentinel *RedisSentinelConfig `yaml:"sentinel"`
	Index    int                  `yaml:"index"`
}

type RedisSentinelConfig struct {
	MasterName        string   `yaml:"master_name"`
	SentinelAddresses []string `yaml:"addresses"`
	SentinelPassword  string   `yaml:"password"`
	SentinelUsername  string   `yaml:"username"`
}
