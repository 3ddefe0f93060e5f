// Package app wires the components both commands share.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/a3tai/form990-extractor/internal/config"
	"github.com/a3tai/form990-extractor/internal/export"
	"github.com/a3tai/form990-extractor/internal/extractor"
	"github.com/a3tai/form990-extractor/internal/pdf"
	"github.com/a3tai/form990-extractor/internal/session"
	"github.com/a3tai/form990-extractor/internal/upload"
)

// App holds the wired components
type App struct {
	Session *session.Session
	Picker  *upload.Picker
	Client  *extractor.Client
}

// New builds the extraction client, export writer, picker and session from cfg
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := extractor.NewClient(cfg.APIURL,
		extractor.WithAPIVersion(extractor.APIVersion(cfg.APIVersion)),
		extractor.WithTimeout(cfg.Timeout),
		extractor.WithLogger(logger.Named("extractor")),
	)
	if err != nil {
		return nil, fmt.Errorf("create extraction client: %w", err)
	}

	writer, err := export.NewWriter(cfg.ExportDirectory, logger.Named("export"))
	if err != nil {
		return nil, fmt.Errorf("create export writer: %w", err)
	}

	picker, err := upload.NewPicker(cfg.UploadDirectory)
	if err != nil {
		return nil, fmt.Errorf("create file picker: %w", err)
	}

	sess, err := session.New(session.Config{
		Extractor: client,
		Validator: pdf.NewValidator(cfg.MaxFileSize),
		Inspector: pdf.NewInspector(),
		Writer:    writer,
		Logger:    logger.Named("session"),
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &App{Session: sess, Picker: picker, Client: client}, nil
}
