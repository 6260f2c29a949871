package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("field@worktrack.dev", "worktrack-devserver", "secret", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.True(t, pair.RefreshExp.After(pair.AccessExp))

	claims, err := Parse(pair.AccessToken, "secret", "worktrack-devserver")
	require.NoError(t, err)
	assert.Equal(t, "field@worktrack.dev", claims.Email)
	assert.Equal(t, "field@worktrack.dev", claims.Subject)
}

func TestParseRejectsWrongKeyAndIssuer(t *testing.T) {
	pair, err := Issue("field@worktrack.dev", "worktrack-devserver", "secret", time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, "other-secret", "worktrack-devserver")
	assert.Error(t, err)

	_, err = Parse(pair.AccessToken, "secret", "someone-else")
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue("field@worktrack.dev", "worktrack-devserver", "secret", -time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, "secret", "worktrack-devserver")
	assert.Error(t, err)
}
