package registry

// AvailabilityChecker reports whether a provider can currently be used,
// based purely on the startup credential snapshot. No liveness probing:
// a missing credential is enough to skip a provider, and a present but
// revoked one is discovered by the dispatcher's fallback on first call.
type AvailabilityChecker struct {
	credentials map[string]string
	localURL    string
}

// NewAvailabilityChecker creates a checker over a credential snapshot and
// the free-tier runtime binding URL
func NewAvailabilityChecker(credentials map[string]string, localURL string) *AvailabilityChecker {
	return &AvailabilityChecker{
		credentials: credentials,
		localURL:    localURL,
	}
}

// IsAvailable reports whether the provider can be dispatched to
func (c *AvailabilityChecker) IsAvailable(p Provider) bool {
	if p.Tier == TierFree {
		return c.localURL != ""
	}
	return c.credentials[p.CredentialKey] != ""
}
