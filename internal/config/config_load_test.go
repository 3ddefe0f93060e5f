package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// resetFlags gives each test a fresh flag set and viper instance
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	original := os.Args
	os.Args = append([]string{"form990-mcp"}, args...)
	resetFlags()
	t.Cleanup(func() {
		os.Args = original
		resetFlags()
	})
}

func TestLoadFromFlags_RequiresAPIURL(t *testing.T) {
	withArgs(t, "--upload-dir="+t.TempDir())

	if _, err := LoadFromFlags(); err == nil {
		t.Fatal("LoadFromFlags() expected error without api url")
	}
}

func TestLoadFromFlags_Flags(t *testing.T) {
	upload := t.TempDir()
	export := filepath.Join(t.TempDir(), "out")
	withArgs(t,
		"--mode=server",
		"--host=0.0.0.0",
		"--port=9191",
		"--api-url=http://ocr.local:8000",
		"--api-version=v1",
		"--timeout=45s",
		"--upload-dir="+upload,
		"--export-dir="+export,
		"--log-level=debug",
		"--max-file-size=2048",
	)

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != ModeServer {
		t.Errorf("Mode = %v, want server", cfg.Mode)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 9191 {
		t.Errorf("Address() = %v, want 0.0.0.0:9191", cfg.Address())
	}
	if cfg.APIURL != "http://ocr.local:8000" {
		t.Errorf("APIURL = %v", cfg.APIURL)
	}
	if cfg.APIVersion != APIv1 {
		t.Errorf("APIVersion = %v, want v1", cfg.APIVersion)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Timeout)
	}
	if cfg.UploadDirectory != upload {
		t.Errorf("UploadDirectory = %v, want %v", cfg.UploadDirectory, upload)
	}
	if cfg.ExportDirectory != export {
		t.Errorf("ExportDirectory = %v, want %v", cfg.ExportDirectory, export)
	}
	if _, err := os.Stat(export); err != nil {
		t.Errorf("export directory was not created: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.MaxFileSize != 2048 {
		t.Errorf("MaxFileSize = %v, want 2048", cfg.MaxFileSize)
	}
}

func TestLoadFromFlags_Environment(t *testing.T) {
	upload := t.TempDir()
	t.Setenv("FORM990_API_URL", "https://extract.example.org")
	t.Setenv("FORM990_API_VERSION", "v1")
	t.Setenv("FORM990_UPLOAD_DIR", upload)
	t.Setenv("FORM990_EXPORT_DIR", filepath.Join(upload, "exports"))
	t.Setenv("FORM990_LOG_LEVEL", "warn")
	t.Setenv("FORM990_MAX_FILE_SIZE", "4096")
	withArgs(t)

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.APIURL != "https://extract.example.org" {
		t.Errorf("APIURL = %v", cfg.APIURL)
	}
	if cfg.APIVersion != APIv1 {
		t.Errorf("APIVersion = %v, want v1", cfg.APIVersion)
	}
	if cfg.UploadDirectory != upload {
		t.Errorf("UploadDirectory = %v, want %v", cfg.UploadDirectory, upload)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %v, want warn", cfg.LogLevel)
	}
	if cfg.MaxFileSize != 4096 {
		t.Errorf("MaxFileSize = %v, want 4096", cfg.MaxFileSize)
	}
	if cfg.Mode != ModeStdio {
		t.Errorf("Mode = %v, want stdio", cfg.Mode)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("FORM990_API_URL", "http://from-env:8000")
	withArgs(t, "--api-url=http://from-flag:8000", "--upload-dir="+t.TempDir(), "--export-dir="+t.TempDir())

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if cfg.APIURL != "http://from-flag:8000" {
		t.Errorf("APIURL = %v, want flag value", cfg.APIURL)
	}
}

func TestLoadFromFlags_RelativeDirectoriesExpanded(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "pdfs"), 0o750); err != nil {
		t.Fatal(err)
	}
	t.Chdir(root)
	withArgs(t, "--api-url=http://localhost:8000", "--upload-dir=pdfs", "--export-dir=out")

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if !filepath.IsAbs(cfg.UploadDirectory) || !filepath.IsAbs(cfg.ExportDirectory) {
		t.Errorf("directories not expanded: %s, %s", cfg.UploadDirectory, cfg.ExportDirectory)
	}
}

func TestLoadFromFlags_Version(t *testing.T) {
	for _, arg := range []string{"--version", "-version", "-v"} {
		t.Run(arg, func(t *testing.T) {
			withArgs(t, arg)
			_, err := LoadFromFlags()
			if !errors.Is(err, ErrVersionRequested) {
				t.Errorf("LoadFromFlags() error = %v, want ErrVersionRequested", err)
			}
		})
	}
}
