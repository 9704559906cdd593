package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

const envPrefix = "SPOTIPLAY"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Resolver    ResolverConfig    `toml:"resolver"`
	Playlist    PlaylistConfig    `toml:"playlist"`
	Selection   SelectionConfig   `toml:"selection"`
	Setlist     SetlistConfig     `toml:"setlist"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the last issued token.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	TokenExpiry  time.Time `toml:"token_expiry"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
//
// SessionSecret signs the web app's visitor sessions. A random secret is used when it is empty,
// which signs every visitor out on restart.
type ServerConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	SessionSecret string `toml:"session_secret"`
	SessionTTL    string `toml:"session_ttl"`
}

// ResolverConfig bounds catalog searches.
type ResolverConfig struct {
	MaxCandidates int     `toml:"max_candidates"`
	Workers       int     `toml:"workers"`
	RateLimit     float64 `toml:"rate_limit"` // requests per second against the Spotify API
}

// PlaylistConfig controls playlist creation and the append-target picker.
type PlaylistConfig struct {
	Public    bool `toml:"public"`
	ListLimit int  `toml:"list_limit"`
}

// SelectionConfig selects how offered candidates are round-tripped through the web layer.
//
// Backend is one of "jwt", "valkey" or "none".
type SelectionConfig struct {
	Backend   string `toml:"backend"`
	Secret    string `toml:"secret"`
	TTL       string `toml:"ttl"`
	ValkeyURL string `toml:"valkey_url"`
}

// SetlistConfig contains settings for fetching setlist pages.
type SetlistConfig struct {
	UserAgent string `toml:"user_agent"`
	Timeout   int    `toml:"timeout"` // seconds
}

// envOverrides lists the settings that may be supplied through the environment.
//
// Each field is read from SPOTIPLAY_<TAG>, falling back to the bare tag.
type envOverrides struct {
	SpotifyClientID     string `envconfig:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRedirectURI  string `envconfig:"SPOTIFY_REDIRECT_URI"`
	DatabasePath        string `envconfig:"DATABASE_PATH"`
	ServerHost          string `envconfig:"SERVER_HOST"`
	ServerPort          int    `envconfig:"SERVER_PORT"`
	SessionSecret       string `envconfig:"SESSION_SECRET"`
	SelectionBackend    string `envconfig:"SELECTION_BACKEND"`
	SelectionSecret     string `envconfig:"SELECTION_SECRET"`
	ValkeyURL           string `envconfig:"VALKEY_URL"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ResolveConfig loads the config at path if present, falling back to defaults, and then applies environment overrides.
//
// A .env file in the working directory is loaded first when it exists.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides config values with any matching environment variables.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	setString(&c.Credentials.Spotify.ClientID, env.SpotifyClientID)
	setString(&c.Credentials.Spotify.ClientSecret, env.SpotifyClientSecret)
	setString(&c.Credentials.Spotify.RedirectURI, env.SpotifyRedirectURI)
	setString(&c.Database.Path, env.DatabasePath)
	setString(&c.Server.Host, env.ServerHost)
	setString(&c.Server.SessionSecret, env.SessionSecret)
	setString(&c.Selection.Backend, env.SelectionBackend)
	setString(&c.Selection.Secret, env.SelectionSecret)
	setString(&c.Selection.ValkeyURL, env.ValkeyURL)
	if env.ServerPort > 0 {
		c.Server.Port = env.ServerPort
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Map returns the credentials in the form expected by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Token returns the stored token, or nil when no access token has been saved.
func (s SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       s.TokenExpiry,
	}
}

// Update stores token, keeping the previous refresh token when the provider did not issue a new one.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidInput)
	}

	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenExpiry = token.Expiry
	return nil
}

// TTLDuration parses the selection TTL, defaulting to 30 minutes.
func (s SelectionConfig) TTLDuration() time.Duration {
	d, err := time.ParseDuration(s.TTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// SessionTTLDuration parses the session lifetime, defaulting to 30 days.
func (s ServerConfig) SessionTTLDuration() time.Duration {
	d, err := time.ParseDuration(s.SessionTTL)
	if err != nil || d <= 0 {
		return 30 * 24 * time.Hour
	}
	return d
}

// TimeoutDuration returns the page fetch timeout, defaulting to 15 seconds.
func (s SetlistConfig) TimeoutDuration() time.Duration {
	if s.Timeout <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}
