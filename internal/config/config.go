package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// API versions
	APIv1 = "v1"
	APIv2 = "v2"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultAPIVersion  = APIv2
	DefaultMaxFileSize = 50 * 1024 * 1024 // 50MB
	DefaultTimeout     = 120 * time.Second

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "FORM990"
)

// ErrVersionRequested is returned by LoadFromFlags when --version is passed
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the Form 990 extraction client
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Extraction service
	APIURL     string
	APIVersion string
	Timeout    time.Duration

	// Local directories
	UploadDirectory string
	ExportDirectory string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults. APIURL has
// no default and must be supplied.
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:            ModeStdio,
		Host:            DefaultHost,
		Port:            DefaultPort,
		APIVersion:      DefaultAPIVersion,
		Timeout:         DefaultTimeout,
		UploadDirectory: currentDir,
		ExportDirectory: filepath.Join(currentDir, "exports"),
		Version:         "1.0.0",
		ServerName:      "form990-extractor",
		LogLevel:        DefaultLogLevel,
		MaxFileSize:     DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	for _, dir := range []*string{&cfg.UploadDirectory, &cfg.ExportDirectory} {
		if *dir == "" {
			continue
		}
		if expanded, err := filepath.Abs(*dir); err == nil {
			*dir = expanded
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("api-url", cfg.APIURL)
	viper.SetDefault("api-version", cfg.APIVersion)
	viper.SetDefault("timeout", cfg.Timeout)
	viper.SetDefault("upload-dir", cfg.UploadDirectory)
	viper.SetDefault("export-dir", cfg.ExportDirectory)
	viper.SetDefault("log-level", cfg.LogLevel)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for SSE server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("api-url", cfg.APIURL, "Base URL of the extraction service (required)")
	pflag.String("api-version", cfg.APIVersion, "Extraction endpoint version (v1, v2)")
	pflag.Duration("timeout", cfg.Timeout, "HTTP timeout for one extraction request")
	pflag.String("upload-dir", cfg.UploadDirectory, "Directory PDF files are picked from")
	pflag.String("export-dir", cfg.ExportDirectory, "Directory exports are written to")
	pflag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "api-url", "api-version", "timeout",
		"upload-dir", "export-dir", "log-level", "max-file-size",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nForm 990 Extractor - submit IRS Form 990 PDFs for field extraction\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --api-url=http://localhost:8000                      "+
			"# stdio mode (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --api-url=http://localhost:8000 --upload-dir=./pdfs  "+
			"# custom upload directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081 --api-url=http://ocr:8000  # SSE server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FORM990_MODE           Server mode\n")
		fmt.Fprintf(os.Stderr, "  FORM990_HOST           Server host\n")
		fmt.Fprintf(os.Stderr, "  FORM990_PORT           Server port\n")
		fmt.Fprintf(os.Stderr, "  FORM990_API_URL        Extraction service base URL\n")
		fmt.Fprintf(os.Stderr, "  FORM990_API_VERSION    Extraction endpoint version\n")
		fmt.Fprintf(os.Stderr, "  FORM990_TIMEOUT        Request timeout\n")
		fmt.Fprintf(os.Stderr, "  FORM990_UPLOAD_DIR     Upload directory\n")
		fmt.Fprintf(os.Stderr, "  FORM990_EXPORT_DIR     Export directory\n")
		fmt.Fprintf(os.Stderr, "  FORM990_LOG_LEVEL      Log level\n")
		fmt.Fprintf(os.Stderr, "  FORM990_MAX_FILE_SIZE  Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.APIURL = viper.GetString("api-url")
	cfg.APIVersion = viper.GetString("api-version")
	cfg.Timeout = viper.GetDuration("timeout")
	cfg.UploadDirectory = viper.GetString("upload-dir")
	cfg.ExportDirectory = viper.GetString("export-dir")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")
}

// Validate checks if the configuration is valid. The upload directory must
// exist; the export directory is created on demand.
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("api url is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api url must be an absolute http(s) URL: %q", c.APIURL)
	}

	if c.APIVersion != APIv1 && c.APIVersion != APIv2 {
		return fmt.Errorf("invalid api version: %s (must be one of: v1, v2)", c.APIVersion)
	}

	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	if c.UploadDirectory == "" {
		return errors.New("upload directory cannot be empty")
	}
	info, err := os.Stat(c.UploadDirectory)
	if err != nil {
		return fmt.Errorf("cannot access upload directory %s: %w", c.UploadDirectory, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("upload directory is not a directory: %s", c.UploadDirectory)
	}

	if c.ExportDirectory == "" {
		return errors.New("export directory cannot be empty")
	}
	if _, err := os.Stat(c.ExportDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.ExportDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create export directory %s: %w", c.ExportDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access export directory %s: %w", c.ExportDirectory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, APIURL: %s, APIVersion: %s, "+
		"UploadDirectory: %s, ExportDirectory: %s, LogLevel: %s, MaxFileSize: %d, Timeout: %s}",
		c.Mode, c.Host, c.Port, c.APIURL, c.APIVersion,
		c.UploadDirectory, c.ExportDirectory, c.LogLevel, c.MaxFileSize, c.Timeout)
}

// IsServerMode returns true if the server is running in SSE server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
