//go:build !integration

package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/track-cli/internal/extract"
)

const (
	idA = "1Z12345E0205271688"
	idB = "1Z999AA10123456784"
)

func TestReadIdentifiers_Text(t *testing.T) {
	ids, err := readIdentifiers(idA+", "+idB, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{idA, idB}, ids)
}

func TestReadIdentifiers_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("order "+idB+"\n"+idA+"\n"), 0o644))

	ids, err := readIdentifiers("", path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{idB, idA}, ids)
}

func TestReadIdentifiers_Stdin(t *testing.T) {
	ids, err := readIdentifiers("", "-", strings.NewReader(idA+"\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{idA}, ids)
}

func TestReadIdentifiers_MissingFile(t *testing.T) {
	_, err := readIdentifiers("", filepath.Join(t.TempDir(), "nope.txt"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open input file")
}

func TestReadIdentifiers_NoInput(t *testing.T) {
	_, err := readIdentifiers("", "", nil)
	assert.Error(t, err)
}

func TestReadIdentifiers_BothInputs(t *testing.T) {
	_, err := readIdentifiers(idA, "ids.txt", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestReadIdentifiers_NoMatches(t *testing.T) {
	_, err := readIdentifiers("hello, world", "", nil)
	assert.True(t, errors.Is(err, extract.ErrNoIdentifiers))
}
