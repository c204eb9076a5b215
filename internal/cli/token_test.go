package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academic-mesh/backend/config"
	"academic-mesh/backend/pkg/jwt"
)

const testSecret = "cli-test-secret-0123456789"

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "auth:\n  jwt_secret: \"" + testSecret + "\"\n  token_ttl: 1h\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestTokenCommand_JSON(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--config", writeTestConfig(t), "--format", "json",
		"token", "--subject", "ops", "--role", jwt.RoleOperator})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string      `json:"status"`
		Data   TokenResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ops", resp.Data.Subject)

	mgr := jwt.NewManager(&config.AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour})
	claims, err := mgr.ParseToken(resp.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, jwt.RoleOperator, claims.Role)
}

func TestTokenCommand_TextPrintsTokenOnly(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--config", writeTestConfig(t), "token", "--subject", "ana"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out.String()), "."), "输出应为单个 JWT")
}

func TestTokenCommand_UnknownRole(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", writeTestConfig(t), "token", "--subject", "x", "--role", "admin"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrUnknownRole)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
