package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all finassist configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	LLM        LLMConfig        `toml:"llm"`
	Forecast   ForecastConfig   `toml:"forecast"`
	Generator  GeneratorConfig  `toml:"generator"`
	RAG        RAGConfig        `toml:"rag"`
	Alarm      AlarmConfig      `toml:"alarm"`
	Server     ServerConfig     `toml:"server"`
	Appearance AppearanceConfig `toml:"appearance"`
	Logging    LoggingConfig    `toml:"logging"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DataFile     string `toml:"data_file"`
	ForecastFile string `toml:"forecast_file"`
	Currency     string `toml:"currency"`
}

// LLMConfig holds chat model settings.
type LLMConfig struct {
	APIKey         string  `toml:"api_key,omitempty"`
	BaseURL        string  `toml:"base_url,omitempty"`
	Model          string  `toml:"model"`
	EmbeddingModel string  `toml:"embedding_model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RequestsPerMin int     `toml:"requests_per_minute"`
}

// ForecastConfig holds forecast engine settings.
type ForecastConfig struct {
	Horizon            int  `toml:"horizon"`
	SeasonLength       int  `toml:"season_length"`
	MinSeasonalHistory int  `toml:"min_seasonal_history"`
	Damped             bool `toml:"damped"`
	Workers            int  `toml:"workers,omitempty"`
	TimeoutSeconds     int  `toml:"timeout_seconds"`
}

// GeneratorConfig holds synthetic data generator settings.
type GeneratorConfig struct {
	Start           string             `toml:"start"` // YYYY-MM
	Months          int                `toml:"months"`
	InflationRate   float64            `toml:"inflation_rate"`
	RaiseRate       float64            `toml:"raise_rate"`
	StartingExpense float64            `toml:"starting_expense"`
	StartingWage    float64            `toml:"starting_wage"`
	Shares          map[string]float64 `toml:"shares,omitempty"`
}

// RAGConfig holds retrieval helper settings.
type RAGConfig struct {
	PersistDir   string   `toml:"persist_dir,omitempty"`
	Collection   string   `toml:"collection"`
	URLs         []string `toml:"urls"`
	ChunkSize    int      `toml:"chunk_size"`
	ChunkOverlap int      `toml:"chunk_overlap"`
	TopK         int      `toml:"top_k"`
}

// AlarmConfig holds reminder scheduling and delivery settings.
type AlarmConfig struct {
	Schedule string `toml:"schedule"`
	SMTPHost string `toml:"smtp_host,omitempty"`
	SMTPPort int    `toml:"smtp_port,omitempty"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	From     string `toml:"from,omitempty"`
	To       string `toml:"to,omitempty"`
}

// ServerConfig holds chat server settings.
type ServerConfig struct {
	Addr            string `toml:"addr"`
	RefreshSeconds  int    `toml:"refresh_seconds"`
	EventBufferSize int    `toml:"event_buffer_size"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // console or json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DataFile:     "data.csv",
			ForecastFile: "forecast.csv",
			Currency:     "TL",
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    1.0,
			TimeoutSeconds: 60,
			RequestsPerMin: 60,
		},
		Forecast: ForecastConfig{
			Horizon:            6,
			SeasonLength:       12,
			MinSeasonalHistory: 24,
			Damped:             true,
			TimeoutSeconds:     30,
		},
		Generator: GeneratorConfig{
			Start:           "2022-01",
			Months:          36,
			InflationRate:   0.01,
			RaiseRate:       0.10,
			StartingExpense: 15000,
			StartingWage:    30000,
		},
		RAG: RAGConfig{
			Collection:   "isbank-blog",
			URLs:         append([]string(nil), DefaultRAGURLs...),
			ChunkSize:    1000,
			ChunkOverlap: 200,
			TopK:         4,
		},
		Alarm: AlarmConfig{
			Schedule: "0 9 1 * *",
			SMTPPort: 587,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8787",
			RefreshSeconds:  300,
			EventBufferSize: 200,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// DefaultRAGURLs are the bank blog pages indexed for question answering.
var DefaultRAGURLs = []string{
	"https://www.isbank.com.tr/blog/ters-ibraz-chargeback-nedir-ve-basvurusu-nasil-yapilir",
	"https://www.isbank.com.tr/blog/vadeli-hesap-vadeli-mevduat-hesaplari-nedir",
	"https://www.isbank.com.tr/blog/ihracat-ne-demek",
	"https://www.isbank.com.tr/blog/altin-hesabi-nedir",
	"https://www.isbank.com.tr/blog/forex-nedir",
	"https://www.isbank.com.tr/blog/kumulatif-vergi-matrahi-nedir",
	"https://www.isbank.com.tr/blog/tahvil-ve-bono-nedir",
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "finassist")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "finassist")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// CacheDir returns the XDG-compliant cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "finassist")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "finassist")
}

// RAGDir returns the vector store directory, honoring the config override.
func RAGDir(cfg Config) string {
	if cfg.RAG.PersistDir != "" {
		return cfg.RAG.PersistDir
	}
	return filepath.Join(CacheDir(), "vectorstore")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads a config file at an explicit path.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from Path() or a test dir
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(Path(), cfg)
}

// SaveTo writes the config to an explicit path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// LoadEnv loads a .env file from the working directory when one exists.
// Variables already set in the environment win.
func LoadEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// GetAPIKey returns the OpenAI key from env var or config, in that order.
func GetAPIKey(cfg Config) string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return cfg.LLM.APIKey
}

// GetSMTPPassword returns the SMTP password from env var or config.
func GetSMTPPassword(cfg Config) string {
	if pw := os.Getenv("FINASSIST_SMTP_PASSWORD"); pw != "" {
		return pw
	}
	return cfg.Alarm.Password
}
