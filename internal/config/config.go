package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	CORSOrigin string        `mapstructure:"cors_origin"`
	APIKey     string        `mapstructure:"api_key"`
	Secret     string        `mapstructure:"secret"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`

	// TLS is optional; when both files are set the server listens HTTPS.
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`

	ICEServerURLs []string `mapstructure:"ice_servers"`
}

// defaultSTUNServers is the fallback list handed to clients when no
// health-qualified server is known.
var defaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
	"stun:stun3.l.google.com:19302",
	"stun:stun4.l.google.com:19302",
}

// ICEServers maps the configured URLs to pion descriptors, one server
// per URL so the recommender can rank them independently.
func (c *Config) ICEServers() []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(c.ICEServerURLs))
	for _, url := range c.ICEServerURLs {
		out = append(out, webrtc.ICEServer{URLs: []string{url}})
	}
	return out
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 2002)
	v.SetDefault("static_path", "./public")
	v.SetDefault("cors_origin", "*")
	v.SetDefault("api_key", "default-key")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "15s")
	v.SetDefault("ice_servers", defaultSTUNServers)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Static: %s\n", cfg.Mode, cfg.Port, cfg.StaticPath)
	return &cfg, nil
}
