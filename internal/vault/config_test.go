package vault

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{
			name:    "invalid auth method",
			cfg:     &Config{AuthMethod: "ldap"},
			wantErr: "invalid auth method",
		},
		{
			name:    "token method requires a token",
			cfg:     &Config{AuthMethod: AuthMethodToken},
			wantErr: "token or tokenWrappingToken is required",
		},
		{
			name: "token and wrapping token are exclusive",
			cfg: &Config{
				AuthMethod:         AuthMethodToken,
				Token:              "s.abc",
				TokenWrappingToken: "s.wrap",
			},
			wantErr: "mutually exclusive",
		},
		{
			name:    "kubernetes requires sub-config",
			cfg:     &Config{AuthMethod: AuthMethodKubernetes},
			wantErr: "kubernetes configuration is required",
		},
		{
			name: "kubernetes requires role",
			cfg: &Config{
				AuthMethod: AuthMethodKubernetes,
				Kubernetes: &KubernetesAuthConfig{},
			},
			wantErr: "role is required",
		},
		{
			name: "userpass requires password",
			cfg: &Config{
				AuthMethod: AuthMethodUserPass,
				UserPass:   &UserPassAuthConfig{Username: "alice"},
			},
			wantErr: "password is required",
		},
		{
			name: "approle requires role id",
			cfg: &Config{
				AuthMethod: AuthMethodAppRole,
				AppRole:    &AppRoleAuthConfig{SecretID: "sid"},
			},
			wantErr: "roleId is required",
		},
		{
			name: "approle requires a secret id",
			cfg: &Config{
				AuthMethod: AuthMethodAppRole,
				AppRole:    &AppRoleAuthConfig{RoleID: "rid"},
			},
			wantErr: "secretId or secretIdWrappingToken is required",
		},
		{
			name: "approle secret id and wrapping token are exclusive",
			cfg: &Config{
				AuthMethod: AuthMethodAppRole,
				AppRole: &AppRoleAuthConfig{
					RoleID:                "rid",
					SecretID:              "sid",
					SecretIDWrappingToken: "s.wrap",
				},
			},
			wantErr: "mutually exclusive",
		},
		{
			name: "negative grace period",
			cfg: &Config{
				AuthMethod:       AuthMethodToken,
				Token:            "s.abc",
				RenewGracePeriod: -time.Second,
			},
			wantErr: "cannot be negative",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			require.Error(t, err)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidateAccepted(t *testing.T) {
	t.Parallel()

	valid := []*Config{
		{AuthMethod: AuthMethodToken, Token: "s.abc"},
		{AuthMethod: AuthMethodToken, TokenWrappingToken: "s.wrap"},
		{AuthMethod: AuthMethodKubernetes, Kubernetes: &KubernetesAuthConfig{Role: "app"}},
		{AuthMethod: AuthMethodUserPass, UserPass: &UserPassAuthConfig{Username: "alice", Password: "pw"}},
		{AuthMethod: AuthMethodAppRole, AppRole: &AppRoleAuthConfig{RoleID: "rid", SecretID: "sid"}},
		{AuthMethod: AuthMethodAppRole, AppRole: &AppRoleAuthConfig{RoleID: "rid", SecretIDWrappingToken: "s.wrap"}},
	}

	for _, cfg := range valid {
		assert.NoError(t, cfg.Validate(), "method %s", cfg.AuthMethod)
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	assert.Equal(t, DefaultRenewGracePeriod, cfg.GetRenewGracePeriod())
	assert.Equal(t, ConfidentialityLow, cfg.LogConfidentialityLevel)

	k8s := &KubernetesAuthConfig{}
	assert.Equal(t, DefaultServiceAccountTokenPath, k8s.GetJWTTokenPath())
	k8s.JWTTokenPath = "/tmp/jwt"
	assert.Equal(t, "/tmp/jwt", k8s.GetJWTTokenPath())
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "vaultauth.yaml")
	data := `
authMethod: approle
appRole:
  roleId: my-role
  secretIdWrappingToken: s.wrap
logConfidentialityLevel: medium
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, AuthMethodAppRole, cfg.AuthMethod)
	assert.Equal(t, "my-role", cfg.AppRole.RoleID)
	assert.Equal(t, "s.wrap", cfg.AppRole.SecretIDWrappingToken)
	assert.Equal(t, ConfidentialityMedium, cfg.LogConfidentialityLevel)
	assert.Equal(t, DefaultRenewGracePeriod, cfg.GetRenewGracePeriod())
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("authMethod: ldap\n"), 0o600))
	_, err = LoadConfig(invalid)
	require.Error(t, err)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestConfigClone(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		AuthMethod:       AuthMethodAppRole,
		AppRole:          &AppRoleAuthConfig{RoleID: "rid", SecretID: "sid"},
		Kubernetes:       &KubernetesAuthConfig{Role: "app"},
		UserPass:         &UserPassAuthConfig{Username: "alice", Password: "pw"},
		RenewGracePeriod: time.Minute,
	}

	clone := cfg.Clone()
	require.NotNil(t, clone)
	assert.Equal(t, cfg, clone)

	clone.AppRole.SecretID = "changed"
	assert.Equal(t, "sid", cfg.AppRole.SecretID)

	var nilCfg *Config
	assert.Nil(t, nilCfg.Clone())
}
