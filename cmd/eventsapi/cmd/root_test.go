package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventmanager/internal/adapters/auth"
	"eventmanager/internal/domain"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedOutput string
		expectError    bool
	}{
		{"help flag", []string{"--help"}, "Event manager HTTP API", false},
		{"migrate help", []string{"migrate", "--help"}, "Apply all pending migrations", false},
		{"invalid flag", []string{"--invalid-flag"}, "unknown flag: --invalid-flag", true},
		{"token without user", []string{"token"}, "--user is required", true},
		{"token with non-uuid user", []string{"token", "--user", "u1"}, "--user must be a UUID", true},
		{"token with unknown role", []string{"token", "--user", "5c1d9e2a-7b3f-4a60-9d8e-1f2a3b4c5d6e", "--role", "admin"}, "unknown role", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, tt.args...)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, output+err.Error(), tt.expectedOutput)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, output, tt.expectedOutput)
		})
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_SECRET", "cli-secret")

	output, err := execute(t, "token", "--user", "0b7e4a1c-93d2-4f60-a5b8-c1d2e3f4a5b6", "--role", "organizer", "--ttl", "1h")
	require.NoError(t, err)

	token := string(bytes.TrimSpace([]byte(output)))
	principal, err := auth.NewJWTVerifier("cli-secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "0b7e4a1c-93d2-4f60-a5b8-c1d2e3f4a5b6", principal.UserID)
	assert.True(t, principal.Can(domain.CapabilityManageEvents))

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp.Time, time.Minute)
}
