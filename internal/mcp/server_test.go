package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/form990-extractor/internal/config"
	"github.com/a3tai/form990-extractor/internal/export"
	"github.com/a3tai/form990-extractor/internal/extractor"
	"github.com/a3tai/form990-extractor/internal/pdf"
	"github.com/a3tai/form990-extractor/internal/session"
	"github.com/a3tai/form990-extractor/internal/testutil"
	"github.com/a3tai/form990-extractor/internal/upload"
)

const partialBody = `{"success": false, "data": {"filename": "form990.pdf",
	"page1": {"total_revenue": "$1,500.75", "employer_identification_number": "12-3456789"},
	"part_ix": {"joint_costs": 42},
	"errors": ["total_assets"]}}`

type fixture struct {
	server    *Server
	uploadDir string
	exportDir string
	status    int
	body      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		uploadDir: t.TempDir(),
		exportDir: t.TempDir(),
		status:    http.StatusOK,
		body:      partialBody,
	}

	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
	}))
	t.Cleanup(svc.Close)

	client, err := extractor.NewClient(svc.URL, extractor.WithTimeout(5*time.Second))
	require.NoError(t, err)
	writer, err := export.NewWriter(f.exportDir, nil)
	require.NoError(t, err)
	sess, err := session.New(session.Config{
		Extractor: client,
		Validator: pdf.NewValidator(1 << 20),
		Inspector: pdf.NewInspector(),
		Writer:    writer,
	})
	require.NoError(t, err)
	picker, err := upload.NewPicker(f.uploadDir)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.APIURL = svc.URL
	cfg.UploadDirectory = f.uploadDir
	cfg.ExportDirectory = f.exportDir

	f.server, err = NewServer(cfg, sess, picker, nil)
	require.NoError(t, err)
	return f
}

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			return text.Text
		}
		if text, ok := content.(*mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	f := newFixture(t)

	_, err := NewServer(nil, f.server.session, f.server.picker, nil)
	assert.Error(t, err)
	_, err = NewServer(f.server.config, nil, f.server.picker, nil)
	assert.Error(t, err)
	_, err = NewServer(f.server.config, f.server.session, nil, nil)
	assert.Error(t, err)

	assert.NotNil(t, f.server.mcpServer)
}

func TestServer_ListAndSelect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.server.handleListFiles(ctx, call(nil))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(result), "No PDF files found")

	testutil.WritePDF(t, f.uploadDir, "form990.pdf", 1)
	testutil.WritePDF(t, f.uploadDir, "other-return.pdf", 1)
	require.NoError(t, os.WriteFile(filepath.Join(f.uploadDir, "notes.txt"), []byte("hello"), 0o644))

	result, err = f.server.handleListFiles(ctx, call(map[string]any{"query": "FORM"}))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	assert.Contains(t, text, "Found 1 PDF file(s)")
	assert.Contains(t, text, "form990.pdf")
	assert.NotContains(t, text, "other-return.pdf")

	result, err = f.server.handleSelectFile(ctx, call(map[string]any{"path": "form990.pdf"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, extractTextFromResult(result), "Selected form990.pdf")
	assert.Contains(t, extractTextFromResult(result), "Pages: 1")

	result, err = f.server.handleSelectFile(ctx, call(map[string]any{"path": "notes.txt"}))
	require.NoError(t, err)
	text = extractTextFromResult(result)
	assert.Contains(t, text, "Ignored notes.txt")
	assert.Contains(t, text, "File: form990.pdf")

	result, err = f.server.handleSelectFile(ctx, call(map[string]any{"path": "../escape.pdf"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = f.server.handleSelectFile(ctx, call(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestServer_ExtractViewExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.server.handleExtract(ctx, call(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError, "extract without a file")

	testutil.WritePDF(t, f.uploadDir, "form990.pdf", 1)
	_, err = f.server.handleSelectFile(ctx, call(map[string]any{"path": "form990.pdf"}))
	require.NoError(t, err)

	result, err = f.server.handleExtract(ctx, call(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
	text := extractTextFromResult(result)
	assert.Contains(t, text, "Extraction partially complete")
	assert.Contains(t, text, "Section: Page 1 Summary")
	assert.Contains(t, text, "Some fields could not be extracted: total_assets")
	assert.Contains(t, text, "Row 12: Total Revenue: 1500\n")
	assert.Contains(t, text, "Item D: EIN: 12-3456789\n")
	assert.Contains(t, text, "Row 20: Total Assets: 0\n")

	result, err = f.server.handleViewSection(ctx, call(map[string]any{"section": "part_ix"}))
	require.NoError(t, err)
	text = extractTextFromResult(result)
	assert.Contains(t, text, "Section: Part IX - Expenses")
	assert.Contains(t, text, ": 42\n")

	result, err = f.server.handleViewSection(ctx, call(map[string]any{"section": "part_x"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	for _, format := range []string{"json", "csv", "xlsx"} {
		result, err = f.server.handleExport(ctx, call(map[string]any{"format": format}))
		require.NoError(t, err)
		require.False(t, result.IsError, extractTextFromResult(result))
		_, statErr := os.Stat(filepath.Join(f.exportDir, "form990_extracted."+format))
		assert.NoError(t, statErr)
	}

	result, err = f.server.handleExport(ctx, call(map[string]any{"format": "pdf"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestServer_ExtractFailure(t *testing.T) {
	f := newFixture(t)
	f.status = http.StatusUnprocessableEntity
	f.body = `{"detail": "File is not a Form 990"}`
	ctx := context.Background()

	testutil.WritePDF(t, f.uploadDir, "form990.pdf", 1)
	_, err := f.server.handleSelectFile(ctx, call(map[string]any{"path": "form990.pdf"}))
	require.NoError(t, err)

	result, err := f.server.handleExtract(ctx, call(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "File is not a Form 990", extractTextFromResult(result))

	result, err = f.server.handleStatus(ctx, call(nil))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	assert.Contains(t, text, "Phase: failed")
	assert.Contains(t, text, "Error: File is not a Form 990")

	result, err = f.server.handleExport(ctx, call(map[string]any{"format": "json"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractTextFromResult(result), "Nothing to export")
}

func TestServer_RemoveAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	testutil.WritePDF(t, f.uploadDir, "form990.pdf", 1)
	_, err := f.server.handleSelectFile(ctx, call(map[string]any{"path": "form990.pdf"}))
	require.NoError(t, err)
	_, err = f.server.handleExtract(ctx, call(nil))
	require.NoError(t, err)

	result, err := f.server.handleRemoveFile(ctx, call(nil))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	assert.Contains(t, text, "File: none selected")
	assert.Contains(t, text, "Phase: idle")

	result, err = f.server.handleViewSection(ctx, call(map[string]any{"section": "page1"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = f.server.handleReset(ctx, call(nil))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(result), "Session reset")
}

func TestServer_RunServerModeStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.server.config.Mode = config.ModeServer
	f.server.config.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
