package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds CLI configuration loaded from flags, environment variables,
// .env files, and an optional ~/.wayfarer.yaml config file.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	Output  string

	ConfigFile string

	// Client configuration
	DatabasePath string
	ServerURL    string
	ServerAPIKey string
	OwnerID      string
	Offline      bool

	// Attachment object store
	BlobEndpoint  string
	BlobAccessKey string
	BlobSecretKey string
	BlobBucket    string
	BlobRegion    string

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from all sources in order of precedence:
// command-line flags (applied by cobra afterwards), environment variables,
// .env files, config file, defaults.
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".wayfarer")
	}
	_ = viper.ReadInConfig()

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		Output:  viper.GetString("output"),

		ConfigFile: viper.ConfigFileUsed(),

		DatabasePath: viper.GetString("database_path"),
		ServerURL:    viper.GetString("server_url"),
		ServerAPIKey: viper.GetString("server_api_key"),
		OwnerID:      viper.GetString("owner_id"),
		Offline:      viper.GetBool("offline"),

		BlobEndpoint:  viper.GetString("blob_endpoint"),
		BlobAccessKey: viper.GetString("blob_access_key"),
		BlobSecretKey: viper.GetString("blob_secret_key"),
		BlobBucket:    viper.GetString("blob_bucket"),
		BlobRegion:    viper.GetString("blob_region"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
	}

	if config.DatabasePath == "" {
		config.DatabasePath = "wayfarer.db"
	}

	return config, nil
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
