package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingCoordinates is returned when latitude or longitude is unset.
	ErrMissingCoordinates = errors.New("latitude and longitude must be set")
	// ErrInvalidCoordinates is returned for out-of-range coordinates.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrMissingAPIKey is returned when no OpenWeather key is configured.
	ErrMissingAPIKey = errors.New("OpenWeather API key is not set")
)

const placeholderAPIKey = "YOUR_OPENWEATHER_APPID"

// Config holds all configuration for the application
type Config struct {
	Weather WeatherConfig `yaml:"weather"`
	Display DisplayConfig `yaml:"display"`
	Fonts   FontConfig    `yaml:"fonts"`
	Icons   IconConfig    `yaml:"icons"`
	Render  RenderConfig  `yaml:"render"`
	Redis   RedisConfig   `yaml:"redis"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Server  ServerConfig  `yaml:"server"`
	Locale  string        `yaml:"locale"`
	// LocaleDir optionally overrides the embedded translation tables.
	LocaleDir              string `yaml:"locale_dir"`
	RefreshIntervalMinutes int    `yaml:"refresh_interval_minutes"`
	LogLevel               string `yaml:"log_level"`

	// InvalidEnv lists variables whose values could not be parsed and were
	// ignored, for the caller to log once a logger exists.
	InvalidEnv []string `yaml:"-"`
}

// WeatherConfig holds the weather data source settings
type WeatherConfig struct {
	APIKey    string   `yaml:"openweather_appid"`
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`
	Units     string   `yaml:"units"`
	// Endpoints are tried in order; the next one is used only on HTTP 401.
	Endpoints []string `yaml:"endpoints"`
	Timeout   int      `yaml:"timeout_seconds"`
}

// DisplayConfig holds panel geometry and output settings
type DisplayConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Hardware  bool   `yaml:"hardware"`
	OutputDir string `yaml:"output_dir"`
}

// FontConfig holds font files and the point size of each role
type FontConfig struct {
	Main  string         `yaml:"main"`
	Bold  string         `yaml:"bold"`
	Sizes map[string]int `yaml:"sizes"`
}

// IconConfig holds icon source and cache settings
type IconConfig struct {
	CacheDir      string  `yaml:"cache_dir"`
	BaseURL       string  `yaml:"base_url"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	// Pipeline is "palette" (three-color conversion) or "threshold".
	Pipeline string `yaml:"pipeline"`
}

// RenderConfig holds the renderer backend chain
type RenderConfig struct {
	// Backends are tried in order: "direct", "document".
	Backends []string `yaml:"backends"`
	WorkDir  string   `yaml:"work_dir"`
}

// RedisConfig holds Redis-related configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// MQTTConfig holds the frame mirror broker settings. An empty Broker
// disables the mirror.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
	// Retained frames reach panels that subscribe after the publish.
	Retained bool `yaml:"retained"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         int `yaml:"port"`
	ReadTimeout  int `yaml:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Weather: WeatherConfig{
			Units: "metric",
			Endpoints: []string{
				"https://api.openweathermap.org/data/3.0/onecall",
				"https://api.openweathermap.org/data/2.5/onecall",
			},
			Timeout: 10,
		},
		Display: DisplayConfig{
			Width:     800,
			Height:    480,
			OutputDir: ".",
		},
		Fonts: FontConfig{
			Sizes: map[string]int{
				"small":  16,
				"medium": 24,
				"large":  40,
				"huge":   64,
			},
		},
		Icons: IconConfig{
			CacheDir:      "cache/icons",
			BaseURL:       "https://openweathermap.org/img/wn",
			RatePerSecond: 2,
			Pipeline:      "palette",
		},
		Render: RenderConfig{
			Backends: []string{"direct"},
			WorkDir:  "cache/render",
		},
		Redis: RedisConfig{
			Channel: "paperweather:frames",
		},
		MQTT: MQTTConfig{
			ClientID: "paperweather",
			Topic:    "paperweather/frame",
			Retained: true,
		},
		Server: ServerConfig{
			ReadTimeout:  10,
			WriteTimeout: 10,
		},
		Locale:                 "en_US",
		RefreshIntervalMinutes: 30,
		LogLevel:               "info",
	}
}

// Load loads configuration from the YAML file at path (optional) and then
// applies environment overrides.
func Load(path string) (*Config, error) {
	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.InvalidEnv = invalidEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Weather.APIKey = getEnv("OPENWEATHER_APPID", c.Weather.APIKey)
	if v, ok := getEnvAsFloat("LATITUDE"); ok {
		c.Weather.Latitude = &v
	}
	if v, ok := getEnvAsFloat("LONGITUDE"); ok {
		c.Weather.Longitude = &v
	}
	c.Weather.Units = getEnv("UNITS", c.Weather.Units)
	c.Locale = getEnv("LOCALE", c.Locale)
	c.RefreshIntervalMinutes = getEnvAsInt("REFRESH_INTERVAL_MINUTES", c.RefreshIntervalMinutes)

	c.Fonts.Main = getEnv("FONT_MAIN", c.Fonts.Main)
	c.Fonts.Bold = getEnv("FONT_BOLD", c.Fonts.Bold)

	c.Icons.CacheDir = getEnv("ICON_CACHE_DIR", c.Icons.CacheDir)
	c.Display.OutputDir = getEnv("OUTPUT_DIR", c.Display.OutputDir)
	c.Display.Hardware = getEnvAsBool("EINK_HARDWARE", c.Display.Hardware)
	c.Render.Backends = getEnvAsList("RENDER_BACKENDS", c.Render.Backends)

	c.Redis.Addr = getRedisAddr(c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.Channel = getEnv("REDIS_CHANNEL", c.Redis.Channel)

	c.MQTT.Broker = getEnv("MQTT_BROKER", c.MQTT.Broker)
	c.MQTT.Topic = getEnv("MQTT_TOPIC", c.MQTT.Topic)

	c.Server.Port = getEnvAsInt("SERVER_PORT", c.Server.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate checks the settings a render cycle cannot run without.
func (c *Config) Validate() error {
	lat, lon := c.Weather.Latitude, c.Weather.Longitude
	if lat == nil || lon == nil {
		return ErrMissingCoordinates
	}
	if *lat < -90 || *lat > 90 {
		return fmt.Errorf("%w: latitude %v must be between -90 and 90", ErrInvalidCoordinates, *lat)
	}
	if *lon < -180 || *lon > 180 {
		return fmt.Errorf("%w: longitude %v must be between -180 and 180", ErrInvalidCoordinates, *lon)
	}
	if c.Weather.APIKey == "" || c.Weather.APIKey == placeholderAPIKey {
		return ErrMissingAPIKey
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("invalid display size %dx%d", c.Display.Width, c.Display.Height)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid MQTT QoS %d", c.MQTT.QoS)
	}
	return nil
}

// Language derives the API language code from the locale (ja_JP -> ja).
func (c *Config) Language() string {
	if i := strings.IndexByte(c.Locale, '_'); i > 0 {
		return c.Locale[:i]
	}
	return c.Locale
}

// numericEnv maps each typed variable to its parser.
var numericEnv = map[string]func(string) error{
	"LATITUDE":                 parseFloat,
	"LONGITUDE":                parseFloat,
	"REFRESH_INTERVAL_MINUTES": parseInt,
	"REDIS_DB":                 parseInt,
	"SERVER_PORT":              parseInt,
	"EINK_HARDWARE":            parseBool,
}

func parseFloat(v string) error {
	_, err := strconv.ParseFloat(v, 64)
	return err
}

func parseInt(v string) error {
	_, err := strconv.Atoi(v)
	return err
}

func parseBool(v string) error {
	_, err := strconv.ParseBool(v)
	return err
}

// invalidEnv returns the typed variables that are set but unparseable,
// sorted by name.
func invalidEnv() []string {
	var bad []string
	for key, parse := range numericEnv {
		if value := os.Getenv(key); value != "" && parse(value) != nil {
			bad = append(bad, key)
		}
	}
	sort.Strings(bad)
	return bad
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string) (float64, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getRedisAddr prefers REDIS_URL (with or without the redis:// scheme)
// over REDIS_ADDR. An empty result disables the Redis sink.
func getRedisAddr(defaultValue string) string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return strings.TrimPrefix(url, "redis://")
	}
	return getEnv("REDIS_ADDR", defaultValue)
}
