package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/cold-emailer/internal/email"
)

const (
	app = "cold-emailer"
)

type Config struct {
	OutputDir  string           `mapstructure:"output-dir"`
	UserAgent  string           `mapstructure:"user-agent"`
	CacheDir   string           `mapstructure:"cache-dir"`
	CachePages bool             `mapstructure:"cache-pages"`
	Defaults   *DefaultsConfig  `mapstructure:"defaults"`
	Portfolio  *PortfolioConfig `mapstructure:"portfolio"`
	Sender     email.Profile    `mapstructure:"sender"`
	Email      *EmailConfig     `mapstructure:"email"`
	AI         *AIConfig        `mapstructure:"ai"`
}

type DefaultsConfig struct {
	Company   string `mapstructure:"company"`
	Recipient string `mapstructure:"recipient"`
	Role      string `mapstructure:"role"`
	URL       string `mapstructure:"url"`
}

type PortfolioConfig struct {
	Path string `mapstructure:"path"`
	// Embedder is "gemini" or "hashed".
	Embedder         string `mapstructure:"embedder"`
	HashedDimensions int    `mapstructure:"hashed-dimensions"`
}

type EmailConfig struct {
	Languages []string `mapstructure:"languages"`
	MinWords  int      `mapstructure:"min-words"`
	MaxWords  int      `mapstructure:"max-words"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey         string  `mapstructure:"api-key"`
	APIKeyFile     string  `mapstructure:"api-key-file"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding-model"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxRetries     int     `mapstructure:"max-retries"`
	MaxLogLength   int     `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cold-emailer turns a job posting page into personalised cold emails",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"user-agent":             "USER_AGENT",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("output-dir", ".")
	viper.SetDefault("portfolio.path", "portfolio.csv")
	viper.SetDefault("portfolio.embedder", "gemini")
	viper.SetDefault("defaults.role", "AI/ML Engineer")
	viper.SetDefault("defaults.recipient", "採用担当者様")
	viper.SetDefault("email.languages", email.DefaultLanguages)
	viper.SetDefault("email.min-words", 150)
	viper.SetDefault("email.max-words", 220)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.max-log-length", 200)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cold-emailer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// A missing .env file is fine; variables may come from the environment.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Defaults are enough unless a config file was requested explicitly.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}

	if err := applyCacheDir(viper.GetString("cache-dir")); err != nil {
		log.Fatal(err)
	}
}

// applyCacheDir points XDG_CACHE_HOME at dir so every cache the process opens
// lands under it. An empty dir leaves the environment alone.
func applyCacheDir(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil
	}
	if err := os.Setenv("XDG_CACHE_HOME", dir); err != nil {
		return fmt.Errorf("setting XDG_CACHE_HOME: %w", err)
	}
	return nil
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
