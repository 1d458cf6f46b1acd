package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdrshnv/deid/internal/redactor"
	"github.com/sdrshnv/deid/internal/testutil"
)

func TestRedactCmd_Args(t *testing.T) {
	out, err := execute(t, "", "redact", "--no-names", "Contact me at user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Contact me at [REDACTED-email]\n", out)
}

func TestRedactCmd_Stdin(t *testing.T) {
	out, err := execute(t, "path: /home/user/file.txt end\n", "redact", "--no-names")
	require.NoError(t, err)
	assert.Equal(t, "path: [REDACTED-file] end\n", out, "no extra newline when the text ends with one")
}

func TestRedactCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("mail a@b.io"), 0o600))

	out, err := execute(t, "", "redact", "--no-names", "--file", path)
	require.NoError(t, err)
	assert.Equal(t, "mail [REDACTED-email]\n", out)
}

func TestRedactCmd_ArgsAndFileConflict(t *testing.T) {
	_, err := execute(t, "", "redact", "--file", "x.txt", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestRedactCmd_WithNames(t *testing.T) {
	server := testutil.NewOllamaNamesServer("Ada")
	defer server.Close()
	t.Setenv("DEID_OLLAMA_BASE_URL", server.URL)

	out, err := execute(t, "", "redact", "--json", "Ada at ada@example.com")
	require.NoError(t, err)

	var res redactor.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "[REDACTED-name] at [REDACTED-email]", res.Redacted)
	assert.False(t, res.Degraded)
	assert.Len(t, res.Entities, 2)
	assert.NotEmpty(t, res.RunID)
}

func TestRedactCmd_DegradedWhenUnreachable(t *testing.T) {
	t.Setenv("DEID_OLLAMA_BASE_URL", testutil.UnreachableURL)

	out, err := execute(t, "", "redact", "--json", "Ada at ada@example.com")
	require.NoError(t, err)

	var res redactor.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Ada at [REDACTED-email]", res.Redacted)
	assert.True(t, res.Degraded)
}

func TestRedactCmd_InvalidConfig(t *testing.T) {
	t.Setenv("DEID_NAME_TIMEOUT", "0s")
	_, err := execute(t, "", "redact", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}
