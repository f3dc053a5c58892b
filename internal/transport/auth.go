package transport

import (
	"net/http"
	"strings"

	"github.com/agentstation/packsync/pkg/errors"
)

// Authenticator applies credentials to outgoing requests.
type Authenticator interface {
	Apply(req *http.Request)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request) {}

// BearerAuth sends a bearer token.
type BearerAuth struct {
	Token string
}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.Token)
}

// APIKeyAuth sends an Elasticsearch API key, the base64 encoded "id:key"
// pair returned by the create API key endpoint.
type APIKeyAuth struct {
	Key string
}

// Apply implements the Authenticator interface for APIKeyAuth.
func (a *APIKeyAuth) Apply(req *http.Request) {
	req.Header.Set("Authorization", "ApiKey "+a.Key)
}

// BasicAuth sends a user name and password.
type BasicAuth struct {
	User     string
	Password string
}

// Apply implements the Authenticator interface for BasicAuth.
func (a *BasicAuth) Apply(req *http.Request) {
	req.SetBasicAuth(a.User, a.Password)
}

// ParseAuth builds an Authenticator from a credential spec:
//
//	""                     no authentication
//	"apikey:<key>"         Elasticsearch API key
//	"bearer:<token>"       bearer token
//	"basic:<user>:<pass>"  basic authentication
func ParseAuth(spec string) (Authenticator, error) {
	if spec == "" {
		return &NoAuth{}, nil
	}
	scheme, value, ok := strings.Cut(spec, ":")
	if !ok || value == "" {
		return nil, errors.NewConfigError("feed-auth", "expected <scheme>:<credentials>", nil)
	}
	switch strings.ToLower(scheme) {
	case "apikey":
		return &APIKeyAuth{Key: value}, nil
	case "bearer":
		return &BearerAuth{Token: value}, nil
	case "basic":
		user, pass, _ := strings.Cut(value, ":")
		return &BasicAuth{User: user, Password: pass}, nil
	}
	return nil, errors.NewConfigError("feed-auth", "unknown scheme "+scheme, nil)
}
