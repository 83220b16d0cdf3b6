package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_PairsUpAndDown(t *testing.T) {
	entries, err := fs.ReadDir(FS, ".")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestFS_DeclaresUniqueConstraints(t *testing.T) {
	schema, err := fs.ReadFile(FS, "000001_create_auth_tables.up.sql")
	require.NoError(t, err)

	for _, constraint := range []string{
		"users_email_key",
		"user_credentials_user_id_key",
		"user_credentials_otp_ref_key",
		"sessions_access_token_key",
		"temp_reset_tokens_token_key",
	} {
		assert.Contains(t, string(schema), constraint)
	}
}
