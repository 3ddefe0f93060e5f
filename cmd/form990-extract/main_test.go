package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/form990-extractor/internal/app"
	"github.com/a3tai/form990-extractor/internal/config"
	"github.com/a3tai/form990-extractor/internal/export"
	"github.com/a3tai/form990-extractor/internal/form990"
	"github.com/a3tai/form990-extractor/internal/testutil"
)

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"a.pdf"}, "Part IX", []string{"json", "", ".xlsx"})
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", opts.path)
	assert.Equal(t, form990.ExpenseDetail, opts.section)
	assert.Equal(t, []export.Format{export.FormatJSON, export.FormatXLSX}, opts.formats)

	_, err = parseOptions(nil, "page1", nil)
	assert.Error(t, err)
	_, err = parseOptions([]string{"a.pdf", "b.pdf"}, "page1", nil)
	assert.Error(t, err)
	_, err = parseOptions([]string{"a.pdf"}, "schedule_b", nil)
	assert.ErrorIs(t, err, form990.ErrUnknownSection)
	_, err = parseOptions([]string{"a.pdf"}, "page1", []string{"docx"})
	assert.ErrorIs(t, err, export.ErrUnknownFormat)
}

func newApp(t *testing.T, status int, body string) (*app.App, string) {
	t.Helper()
	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(svc.Close)

	cfg := config.DefaultConfig()
	cfg.APIURL = svc.URL
	cfg.Timeout = 5 * time.Second
	cfg.UploadDirectory = t.TempDir()
	cfg.ExportDirectory = t.TempDir()

	a, err := app.New(cfg, nil)
	require.NoError(t, err)
	return a, cfg.ExportDirectory
}

func TestRun(t *testing.T) {
	a, exportDir := newApp(t, http.StatusOK,
		`{"success": true, "data": {"filename": "return.pdf", "part_viii": {"total_revenue": "2,000"}}}`)
	path := testutil.WritePDF(t, t.TempDir(), "return.pdf", 1)

	var out bytes.Buffer
	err := run(context.Background(), a.Session, options{
		path:    path,
		section: form990.RevenueDetail,
		formats: []export.Format{export.FormatJSON, export.FormatCSV},
	}, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Section: Part VIII - Revenue")
	assert.Contains(t, text, "2000\n")
	assert.Contains(t, text, "Wrote "+filepath.Join(exportDir, "return_extracted.json"))
	assert.Contains(t, text, "Wrote "+filepath.Join(exportDir, "return_extracted.csv"))
}

func TestRun_Failures(t *testing.T) {
	a, _ := newApp(t, http.StatusInternalServerError, `{"message": "OCR backend down"}`)

	err := run(context.Background(), a.Session, options{path: filepath.Join(t.TempDir(), "missing.pdf")}, &bytes.Buffer{})
	assert.Error(t, err)

	txt := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain text"), 0o644))
	err = run(context.Background(), a.Session, options{path: txt}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a PDF")

	path := testutil.WritePDF(t, t.TempDir(), "return.pdf", 1)
	err = run(context.Background(), a.Session, options{path: path, section: form990.Page1Summary}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, "OCR backend down", err.Error())
}
