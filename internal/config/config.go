package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Tiliavir/rsg-workblocks/internal/model"
	"github.com/Tiliavir/rsg-workblocks/internal/storage"
)

// Config is the resolved configuration for submit-workblocks.
type Config struct {
	// URL is the API base URL, e.g. http://localhost:8000.
	URL string
	// RSE is the submitter's LDAP DN / username.
	RSE string
	// TokenFile is where the API token is cached.
	TokenFile string
	// WorkblockType is the type tag sent with every workblock.
	WorkblockType string
	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout  time.Duration
	LogLevel string
}

const (
	// DefaultURL is the API of a local development server.
	DefaultURL = "http://localhost:8000"
	// EnvPrefix prefixes environment overrides, e.g. WORKBLOCKS_URL.
	EnvPrefix = "WORKBLOCKS"
)

// Viper keys.
const (
	KeyURL           = "url"
	KeyRSE           = "rse"
	KeyTokenFile     = "token_file"
	KeyWorkblockType = "workblock_type"
	KeyTimeout       = "timeout"
	KeyLogLevel      = "log.level"
)

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyURL, DefaultURL)
	v.SetDefault(KeyTokenFile, storage.DefaultTokenFile)
	v.SetDefault(KeyWorkblockType, model.DefaultWorkblockType)
	v.SetDefault(KeyTimeout, "0s")
	v.SetDefault(KeyLogLevel, "info")
}

// NewViper returns a viper instance with defaults and environment overrides
// set up, reading cfgFile if given or config.yaml from the working directory
// or ~/.workblocks otherwise. A missing config file is not an error.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".workblocks"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return v, nil
}

// Load resolves a Config from v.
func Load(v *viper.Viper) Config {
	return Config{
		URL:           strings.TrimSpace(v.GetString(KeyURL)),
		RSE:           strings.TrimSpace(v.GetString(KeyRSE)),
		TokenFile:     v.GetString(KeyTokenFile),
		WorkblockType: strings.TrimSpace(v.GetString(KeyWorkblockType)),
		Timeout:       v.GetDuration(KeyTimeout),
		LogLevel:      v.GetString(KeyLogLevel),
	}
}

// Validate checks the fields every command relies on.
func (c Config) Validate() error {
	if c.RSE == "" {
		return errors.New(`required flag "rse" not set (or set WORKBLOCKS_RSE)`)
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use the http:// or https:// scheme", c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", c.URL)
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.WorkblockType == "" {
		return errors.New("workblock_type must not be empty")
	}
	return nil
}
