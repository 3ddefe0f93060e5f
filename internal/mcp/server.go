package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/form990-extractor/internal/config"
	"github.com/a3tai/form990-extractor/internal/descriptions"
	"github.com/a3tai/form990-extractor/internal/export"
	"github.com/a3tai/form990-extractor/internal/extractor"
	"github.com/a3tai/form990-extractor/internal/form990"
	"github.com/a3tai/form990-extractor/internal/session"
	"github.com/a3tai/form990-extractor/internal/upload"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	session   *session.Session
	picker    *upload.Picker
	mcpServer *server.MCPServer
	logger    *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, sess *session.Session, picker *upload.Picker, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if sess == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}
	if picker == nil {
		return nil, fmt.Errorf("picker cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		session:   sess,
		picker:    picker,
		mcpServer: mcpServer,
		logger:    logger,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"form990_list_files",
		mcp.WithDescription(descriptions.GetToolDescription("form990_list_files")),
		mcp.WithString("query",
			mcp.Description("Optional case-insensitive file name filter"),
		),
	), s.handleListFiles)

	s.mcpServer.AddTool(mcp.NewTool(
		"form990_select_file",
		mcp.WithDescription(descriptions.GetToolDescription("form990_select_file")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the PDF, absolute or relative to the upload directory"),
		),
	), s.handleSelectFile)

	s.mcpServer.AddTool(mcp.NewTool(
		"form990_remove_file",
		mcp.WithDescription(descriptions.GetToolDescription("form990_remove_file")),
	), s.handleRemoveFile)

	s.mcpServer.AddTool(mcp.NewTool(
		"form990_extract",
		mcp.WithDescription(descriptions.GetToolDescription("form990_extract")),
	), s.handleExtract)

	s.mcpServer.AddTool(mcp.NewTool(
		"form990_view_section",
		mcp.WithDescription(descriptions.GetToolDescription("form990_view_section")),
		mcp.WithString("section",
			mcp.Required(),
			mcp.Description("Section to display"),
			mcp.Enum(sectionKeys()...),
		),
	), s.handleViewSection)

	s.mcpServer.AddTool(mcp.NewTool(
		"form990_export",
		mcp.WithDescription(descriptions.GetToolDescription("form990_export")),
		mcp.WithString("format",
			mcp.Required(),
			mcp.Description("Export format"),
			mcp.Enum(formatNames()...),
		),
		mcp.WithString("directory",
			mcp.Description("Target directory inside the export directory (uses default if empty)"),
		),
	), s.handleExport)

	s.mcpServer.AddTool(mcp.NewTool(
		"form990_reset",
		mcp.WithDescription(descriptions.GetToolDescription("form990_reset")),
	), s.handleReset)

	s.mcpServer.AddTool(mcp.NewTool(
		"form990_status",
		mcp.WithDescription(descriptions.GetToolDescription("form990_status")),
	), s.handleStatus)
}

func sectionKeys() []string {
	keys := make([]string, 0, len(form990.Sections()))
	for _, sec := range form990.Sections() {
		keys = append(keys, string(sec))
	}
	return keys
}

func formatNames() []string {
	names := make([]string, 0, len(export.Formats()))
	for _, f := range export.Formats() {
		names = append(names, string(f))
	}
	return names
}

// Handler functions
func (s *Server) handleListFiles(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := ""
	if q, ok := request.GetArguments()["query"].(string); ok {
		query = q
	}

	files, err := s.picker.List(query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(files) == 0 {
		text := fmt.Sprintf("No PDF files found in directory: %s", s.picker.Dir())
		if query != "" {
			text += fmt.Sprintf(" (searched for: %s)", query)
		}
		return mcp.NewToolResultText(text), nil
	}

	return mcp.NewToolResultText(s.formatFileList(files, query)), nil
}

func (s *Server) handleSelectFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	candidate, err := s.picker.Open(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	snap := s.session.SelectFile(candidate)
	if !candidate.IsPDF() {
		text := fmt.Sprintf("Ignored %s: not a PDF (%s)\n", candidate.Name, candidate.MediaType)
		text += s.formatStatus(snap)
		return mcp.NewToolResultText(text), nil
	}

	text := fmt.Sprintf("Selected %s\n", snap.Upload.File.Name)
	text += fmt.Sprintf("Size: %s\n", upload.FormatSize(snap.Upload.File.Size))
	if snap.Upload.File.Pages > 0 {
		text += fmt.Sprintf("Pages: %d\n", snap.Upload.File.Pages)
	}
	if snap.Notice != "" {
		text += fmt.Sprintf("\n⚠️  %s\n", snap.Notice)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleRemoveFile(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.session.RemoveFile()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("File removed\n" + s.formatStatus(snap)), nil
}

func (s *Server) handleExtract(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.session.Snapshot().Upload.HasFile() {
		return mcp.NewToolResultError(extractor.ErrNoFile.Error()), nil
	}

	snap, err := s.session.Extract(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch snap.Request.Phase {
	case extractor.Failed:
		return mcp.NewToolResultError(snap.Request.Message), nil
	case extractor.Succeeded:
		view, err := s.session.View()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text := "✅ Extraction complete"
		if snap.Request.Partial {
			text = "⚠️  Extraction partially complete"
		}
		return mcp.NewToolResultText(text + "\n\n" + s.formatView(view)), nil
	default:
		// reset while the request was in flight
		return mcp.NewToolResultText("Extraction was cancelled\n" + s.formatStatus(snap)), nil
	}
}

func (s *Server) handleViewSection(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("section")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	section, err := form990.ParseSection(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.session.SetSection(section); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	view, err := s.session.View()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatView(view)), nil
}

func (s *Server) handleExport(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	format, err := export.ParseFormat(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	directory := ""
	if dir, ok := request.GetArguments()["directory"].(string); ok {
		directory = dir
	}

	path, err := s.session.Export(format, directory)
	if err != nil {
		if errors.Is(err, session.ErrNoResult) {
			return mcp.NewToolResultError("Nothing to export: run form990_extract first"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Exported %s to %s", strings.ToUpper(string(format)), path)), nil
}

func (s *Server) handleReset(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.session.Reset()
	return mcp.NewToolResultText("Session reset\n" + s.formatStatus(snap)), nil
}

func (s *Server) handleStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatStatus(s.session.Snapshot())), nil
}

// Formatting methods
func (s *Server) formatFileList(files []*upload.FileHandle, query string) string {
	text := fmt.Sprintf("Found %d PDF file(s) in directory: %s\n", len(files), s.picker.Dir())
	if query != "" {
		text += fmt.Sprintf("Search query: %s\n", query)
	}
	text += "\nFiles:\n"

	for i, file := range files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %s\n", upload.FormatSize(file.Size))
		if i < len(files)-1 {
			text += "\n"
		}
	}

	return text
}

func (s *Server) formatView(view form990.View) string {
	result := view.Result()
	text := ""
	if result.Filename != "" {
		text += fmt.Sprintf("📄 %s\n", result.Filename)
	}
	text += fmt.Sprintf("Section: %s\n", view.Active().Title())

	if banner := view.WarningBanner(); banner != "" {
		text += fmt.Sprintf("\n⚠️  %s\n", banner)
	}

	text += "\n"
	for _, row := range view.Rows() {
		text += fmt.Sprintf("%s: %s\n", row.Label, row.Value)
	}

	text += "\nOther sections:"
	for _, sec := range form990.Sections() {
		if sec != view.Active() {
			text += fmt.Sprintf(" %s (%s)", sec, sec.Title())
		}
	}
	text += "\n"

	return text
}

func (s *Server) formatStatus(snap session.Snapshot) string {
	text := "Form 990 Extractor Status\n"
	if snap.Upload.HasFile() {
		text += fmt.Sprintf("File: %s (%s)\n", snap.Upload.File.Name, upload.FormatSize(snap.Upload.File.Size))
	} else {
		text += "File: none selected\n"
	}
	text += fmt.Sprintf("Phase: %s\n", snap.Request.Phase)
	text += fmt.Sprintf("Section: %s\n", snap.Active.Title())

	if snap.Request.Phase == extractor.Succeeded && snap.Request.Partial {
		text += fmt.Sprintf("Warnings: %s\n", strings.Join(snap.Request.Warnings, ", "))
	}
	if snap.Request.Phase == extractor.Failed {
		text += fmt.Sprintf("Error: %s\n", snap.Request.Message)
	}
	if snap.Notice != "" {
		text += fmt.Sprintf("Notice: %s\n", snap.Notice)
	}

	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	s.logger.Info("mcp.start",
		zap.String("mode", config.ModeStdio),
		zap.String("upload_dir", s.picker.Dir()),
	)

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE until ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	s.logger.Info("mcp.start",
		zap.String("mode", config.ModeServer),
		zap.String("addr", addr),
		zap.String("upload_dir", s.picker.Dir()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve sse: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("mcp.shutdown", zap.String("addr", addr))
		if err := sse.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("failed to shut down sse server: %w", err)
		}
		return nil
	}
}
