package vault

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AuthMethod specifies the Vault authentication method.
type AuthMethod string

// Authentication method constants.
const (
	// AuthMethodToken uses a directly supplied client token.
	AuthMethodToken AuthMethod = "token"

	// AuthMethodKubernetes uses Kubernetes ServiceAccount JWT authentication.
	AuthMethodKubernetes AuthMethod = "kubernetes"

	// AuthMethodUserPass uses username/password authentication.
	AuthMethodUserPass AuthMethod = "userpass"

	// AuthMethodAppRole uses AppRole authentication with RoleID and SecretID.
	AuthMethodAppRole AuthMethod = "approle"
)

// String returns the string representation of the auth method.
func (m AuthMethod) String() string {
	return string(m)
}

// IsValid returns true if the auth method is valid.
func (m AuthMethod) IsValid() bool {
	switch m {
	case AuthMethodToken, AuthMethodKubernetes, AuthMethodUserPass, AuthMethodAppRole:
		return true
	default:
		return false
	}
}

// DefaultRenewGracePeriod is the time before expiry at which the token is
// proactively renewed.
const DefaultRenewGracePeriod = 30 * time.Second

// DefaultServiceAccountTokenPath is the standard Kubernetes service account
// token path, not a hardcoded credential.
//
//nolint:gosec // G101
const DefaultServiceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// Config represents token lifecycle configuration. Exactly one
// authentication method is active per deployment.
type Config struct {
	// AuthMethod specifies the authentication method.
	AuthMethod AuthMethod `yaml:"authMethod" json:"authMethod"`

	// Token is a literal client token for token authentication.
	// Mutually exclusive with TokenWrappingToken.
	Token string `yaml:"token,omitempty" json:"token,omitempty"`

	// TokenWrappingToken is a wrapping token guarding the client token.
	// Mutually exclusive with Token.
	TokenWrappingToken string `yaml:"tokenWrappingToken,omitempty" json:"tokenWrappingToken,omitempty"`

	// Kubernetes auth configuration.
	Kubernetes *KubernetesAuthConfig `yaml:"kubernetes,omitempty" json:"kubernetes,omitempty"`

	// UserPass auth configuration.
	UserPass *UserPassAuthConfig `yaml:"userpass,omitempty" json:"userpass,omitempty"`

	// AppRole auth configuration.
	AppRole *AppRoleAuthConfig `yaml:"appRole,omitempty" json:"appRole,omitempty"`

	// RenewGracePeriod is the time before expiry at which renewal is
	// attempted instead of waiting for expiry. Defaults to 30s.
	RenewGracePeriod time.Duration `yaml:"renewGracePeriod,omitempty" json:"renewGracePeriod,omitempty"`

	// LogConfidentialityLevel controls masking of secret material in logs.
	// Defaults to low (mask everything sensitive).
	LogConfidentialityLevel ConfidentialityLevel `yaml:"logConfidentialityLevel,omitempty" json:"logConfidentialityLevel,omitempty"`
}

// KubernetesAuthConfig configures Kubernetes authentication.
type KubernetesAuthConfig struct {
	// Role is the Vault role to authenticate as.
	Role string `yaml:"role" json:"role"`

	// JWTTokenPath is the path to the ServiceAccount token file.
	// Defaults to "/var/run/secrets/kubernetes.io/serviceaccount/token".
	JWTTokenPath string `yaml:"jwtTokenPath,omitempty" json:"jwtTokenPath,omitempty"`
}

// UserPassAuthConfig configures username/password authentication.
type UserPassAuthConfig struct {
	// Username is the userpass login name.
	Username string `yaml:"username" json:"username"`

	// Password is the userpass password.
	Password string `yaml:"password" json:"password"`
}

// AppRoleAuthConfig configures AppRole authentication.
type AppRoleAuthConfig struct {
	// RoleID is the AppRole role ID.
	RoleID string `yaml:"roleId" json:"roleId"`

	// SecretID is a literal AppRole secret ID.
	// Mutually exclusive with SecretIDWrappingToken.
	SecretID string `yaml:"secretId,omitempty" json:"secretId,omitempty"`

	// SecretIDWrappingToken is a wrapping token guarding the secret ID.
	// Mutually exclusive with SecretID.
	SecretIDWrappingToken string `yaml:"secretIdWrappingToken,omitempty" json:"secretIdWrappingToken,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		AuthMethod:              AuthMethodToken,
		RenewGracePeriod:        DefaultRenewGracePeriod,
		LogConfidentialityLevel: ConfidentialityLow,
	}
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, NewConfigurationErrorWithCause("", "failed to parse configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDirectClientToken returns true if configuration supplies the client
// token directly, either literally or via a wrapping token. The token
// lifecycle state machine is bypassed in that case.
func (c *Config) IsDirectClientToken() bool {
	return c.AuthMethod == AuthMethodToken
}

// GetRenewGracePeriod returns the effective renew grace period.
func (c *Config) GetRenewGracePeriod() time.Duration {
	if c.RenewGracePeriod > 0 {
		return c.RenewGracePeriod
	}
	return DefaultRenewGracePeriod
}

// GetJWTTokenPath returns the effective ServiceAccount token path.
func (c *KubernetesAuthConfig) GetJWTTokenPath() string {
	if c.JWTTokenPath != "" {
		return c.JWTTokenPath
	}
	return DefaultServiceAccountTokenPath
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return NewConfigurationError("", "configuration is nil")
	}

	if !c.AuthMethod.IsValid() {
		return NewConfigurationError("authMethod", fmt.Sprintf("invalid auth method: %q", c.AuthMethod))
	}

	if c.RenewGracePeriod < 0 {
		return NewConfigurationError("renewGracePeriod", "renewGracePeriod cannot be negative")
	}

	if !c.LogConfidentialityLevel.IsValid() {
		return NewConfigurationError("logConfidentialityLevel",
			fmt.Sprintf("invalid confidentiality level: %d", c.LogConfidentialityLevel))
	}

	switch c.AuthMethod {
	case AuthMethodToken:
		return c.validateTokenConfig()
	case AuthMethodKubernetes:
		return c.validateKubernetesConfig()
	case AuthMethodUserPass:
		return c.validateUserPassConfig()
	case AuthMethodAppRole:
		return c.validateAppRoleConfig()
	}
	return nil
}

// validateTokenConfig enforces that exactly one of the literal token and the
// wrapping token is present.
func (c *Config) validateTokenConfig() error {
	if c.Token == "" && c.TokenWrappingToken == "" {
		return NewConfigurationError("token", "token or tokenWrappingToken is required for token authentication")
	}
	if c.Token != "" && c.TokenWrappingToken != "" {
		return NewConfigurationError("token", "token and tokenWrappingToken are mutually exclusive")
	}
	return nil
}

// validateKubernetesConfig validates Kubernetes auth configuration.
func (c *Config) validateKubernetesConfig() error {
	if c.Kubernetes == nil {
		return NewConfigurationError("kubernetes", "kubernetes configuration is required for kubernetes authentication")
	}
	if c.Kubernetes.Role == "" {
		return NewConfigurationError("kubernetes.role", "role is required for kubernetes authentication")
	}
	return nil
}

// validateUserPassConfig validates userpass auth configuration.
func (c *Config) validateUserPassConfig() error {
	if c.UserPass == nil {
		return NewConfigurationError("userpass", "userpass configuration is required for userpass authentication")
	}
	if c.UserPass.Username == "" {
		return NewConfigurationError("userpass.username", "username is required for userpass authentication")
	}
	if c.UserPass.Password == "" {
		return NewConfigurationError("userpass.password", "password is required for userpass authentication")
	}
	return nil
}

// validateAppRoleConfig validates AppRole auth configuration and the
// secretId / secretIdWrappingToken exclusivity.
func (c *Config) validateAppRoleConfig() error {
	if c.AppRole == nil {
		return NewConfigurationError("appRole", "appRole configuration is required for approle authentication")
	}
	if c.AppRole.RoleID == "" {
		return NewConfigurationError("appRole.roleId", "roleId is required for approle authentication")
	}
	if c.AppRole.SecretID == "" && c.AppRole.SecretIDWrappingToken == "" {
		return NewConfigurationError("appRole.secretId",
			"secretId or secretIdWrappingToken is required for approle authentication")
	}
	if c.AppRole.SecretID != "" && c.AppRole.SecretIDWrappingToken != "" {
		return NewConfigurationError("appRole.secretId",
			"secretId and secretIdWrappingToken are mutually exclusive")
	}
	return nil
}

// Clone creates a deep copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := &Config{
		AuthMethod:              c.AuthMethod,
		Token:                   c.Token,
		TokenWrappingToken:      c.TokenWrappingToken,
		RenewGracePeriod:        c.RenewGracePeriod,
		LogConfidentialityLevel: c.LogConfidentialityLevel,
	}

	if c.Kubernetes != nil {
		clone.Kubernetes = &KubernetesAuthConfig{
			Role:         c.Kubernetes.Role,
			JWTTokenPath: c.Kubernetes.JWTTokenPath,
		}
	}

	if c.UserPass != nil {
		clone.UserPass = &UserPassAuthConfig{
			Username: c.UserPass.Username,
			Password: c.UserPass.Password,
		}
	}

	if c.AppRole != nil {
		clone.AppRole = &AppRoleAuthConfig{
			RoleID:                c.AppRole.RoleID,
			SecretID:              c.AppRole.SecretID,
			SecretIDWrappingToken: c.AppRole.SecretIDWrappingToken,
		}
	}

	return clone
}
