package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode      string `mapstructure:"mode"`
	Providers struct {
		Places struct {
			BaseURL     string        `mapstructure:"baseURL"`
			RadiusM     int           `mapstructure:"radiusMeters"`
			ResultLimit int           `mapstructure:"resultLimit"`
			Timeout     time.Duration `mapstructure:"timeout"`
		} `mapstructure:"places"`
		Routing struct {
			BaseURL string        `mapstructure:"baseURL"`
			Profile string        `mapstructure:"profile"`
			Timeout time.Duration `mapstructure:"timeout"`
		} `mapstructure:"routing"`
		Gemini struct {
			Model   string        `mapstructure:"model"`
			Timeout time.Duration `mapstructure:"timeout"`
		} `mapstructure:"gemini"`
	} `mapstructure:"providers"`
	RateLimit struct {
		IdleTTL       time.Duration `mapstructure:"idleTTL"`
		SweepInterval time.Duration `mapstructure:"sweepInterval"`
	} `mapstructure:"rateLimit"`
	Server struct {
		HTTPPort    string        `mapstructure:"HTTPPort"`
		MetricsPort string        `mapstructure:"metricsPort"`
		Timeout     time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	return config, nil
}

// Environment variable names for the upstream provider credentials.
const (
	EnvPlacesAPIKey  = "GEOAPIFY_API_KEY"
	EnvRoutingAPIKey = "ORS_API_KEY"
	EnvGeminiAPIKey  = "GOOGLE_GEMINI_API_KEY"
)

// ProviderKeys holds the upstream credentials. They are read from the
// environment on every request so a key rotated at runtime is picked up
// without a restart.
type ProviderKeys struct {
	Places  string
	Routing string
	Gemini  string
}

func LoadProviderKeys() ProviderKeys {
	return ProviderKeys{
		Places:  os.Getenv(EnvPlacesAPIKey),
		Routing: os.Getenv(EnvRoutingAPIKey),
		Gemini:  os.Getenv(EnvGeminiAPIKey),
	}
}

// Missing returns the names of any absent credentials.
func (k ProviderKeys) Missing() []string {
	var missing []string
	if strings.TrimSpace(k.Places) == "" {
		missing = append(missing, EnvPlacesAPIKey)
	}
	if strings.TrimSpace(k.Routing) == "" {
		missing = append(missing, EnvRoutingAPIKey)
	}
	if strings.TrimSpace(k.Gemini) == "" {
		missing = append(missing, EnvGeminiAPIKey)
	}
	return missing
}
