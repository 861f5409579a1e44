//go:build !integration

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/track-cli/internal/model"
)

func TestTrackCommand_EndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/track/")
		if id == idB {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"trackResponse":{"shipment":[{"package":[{"currentStatus":{"description":"Delivered"}}]}]}}`))
	}))
	defer upstream.Close()

	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	defer os.Chdir(origDir)

	t.Setenv("TRACK_CARRIER_BASE_URL", upstream.URL)
	t.Setenv("TRACK_BATCH_DELAY_MS", "0")
	t.Setenv("TRACK_LOG_LEVEL", "error")

	oldCfg := cfg
	t.Cleanup(func() {
		cfg = oldCfg
		trackText, trackExport, trackFormat = "", "", formatTable
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	exportPath := filepath.Join(tmpDir, "out.xlsx")
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"track", "--text", idA + "\n" + idB, "--format", "json", "--export", exportPath})

	require.NoError(t, rootCmd.Execute())

	var records []model.NormalizedRecord
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Delivered", records[0].Status)
	assert.Equal(t, "N/A", records[1].Status)

	assert.Contains(t, stderr.String(), "[2/2] 100%")
	assert.Contains(t, stderr.String(), "Tracked 2 of 2")
	assert.Contains(t, stderr.String(), "(1 failed)")
	assert.Contains(t, stderr.String(), "Exported 2 rows")

	f, err := xlsx.OpenFile(exportPath)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	assert.Len(t, f.Sheets[0].Rows, 3)
}

func TestTrackCommand_UnknownFormatFailsBeforeLookups(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	defer os.Chdir(origDir)

	t.Setenv("TRACK_CARRIER_BASE_URL", upstream.URL)
	t.Setenv("TRACK_BATCH_DELAY_MS", "0")
	t.Setenv("TRACK_LOG_LEVEL", "error")

	oldCfg := cfg
	t.Cleanup(func() {
		cfg = oldCfg
		trackText, trackFormat = "", formatTable
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"track", "--text", idA, "--format", "xml"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
	assert.Zero(t, hits.Load())
	assert.Empty(t, stdout.String())
}
