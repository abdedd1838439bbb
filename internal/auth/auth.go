package auth

import (
	"net/http"
	"strings"
)

// HeaderService carries the trusted internal caller name. Trust for this
// header is established by the deployment's binding layer, not verified here.
const HeaderService = "X-Relay-Service"

// Method is the trust level by which a request was authenticated
type Method string

const (
	MethodServiceBinding Method = "service-binding"
	MethodBearerToken    Method = "bearer-token"
	MethodDevMode        Method = "dev-mode"
)

// Decision is the transient per-request authentication result
type Decision struct {
	Method     Method `json:"method,omitempty"`
	Authorized bool   `json:"authorized"`
	CallerID   string `json:"caller_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// strategy attempts one authentication method. A nil result means the
// strategy does not apply and the gate moves to the next one; a non-nil
// result is definitive, authorized or not.
type strategy interface {
	tryAuthenticate(r *http.Request) *Decision
}

// Gate classifies inbound requests into a trust level before any routing
type Gate struct {
	strategies []strategy
}

// NewGate creates a gate with the fixed strategy priority order:
// service binding, bearer token, dev mode.
func NewGate(sharedSecret string, production bool) *Gate {
	return &Gate{
		strategies: []strategy{
			&serviceBindingStrategy{},
			&bearerTokenStrategy{secret: sharedSecret},
			&devModeStrategy{secretConfigured: sharedSecret != "", production: production},
		},
	}
}

// Verify classifies a single request. Pure and synchronous; never retried.
func (g *Gate) Verify(r *http.Request) Decision {
	for _, s := range g.strategies {
		if d := s.tryAuthenticate(r); d != nil {
			return *d
		}
	}
	return Decision{
		Authorized: false,
		Reason:     "No authentication provided",
	}
}

// serviceBindingStrategy trusts the internal service header outright
type serviceBindingStrategy struct{}

func (s *serviceBindingStrategy) tryAuthenticate(r *http.Request) *Decision {
	caller := r.Header.Get(HeaderService)
	if caller == "" {
		return nil
	}
	return &Decision{
		Method:     MethodServiceBinding,
		Authorized: true,
		CallerID:   caller,
	}
}

// bearerTokenStrategy compares the bearer token against the shared secret
type bearerTokenStrategy struct {
	secret string
}

func (s *bearerTokenStrategy) tryAuthenticate(r *http.Request) *Decision {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if s.secret == "" || token != s.secret {
		return &Decision{
			Method:     MethodBearerToken,
			Authorized: false,
			Reason:     "Invalid token",
		}
	}
	return &Decision{
		Method:     MethodBearerToken,
		Authorized: true,
		CallerID:   "api",
	}
}

// devModeStrategy allows unauthenticated access only when no secret is
// configured and the deployment is not production. The production branch is
// a fail-closed net against shipping an open gateway by mistake.
type devModeStrategy struct {
	secretConfigured bool
	production       bool
}

func (s *devModeStrategy) tryAuthenticate(r *http.Request) *Decision {
	if s.secretConfigured {
		return nil
	}
	if s.production {
		return &Decision{
			Authorized: false,
			Reason:     "Authentication is not configured for this production deployment",
		}
	}
	return &Decision{
		Method:     MethodDevMode,
		Authorized: true,
		CallerID:   "dev",
	}
}
