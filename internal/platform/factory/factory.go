// Package factory maps platform identifiers plus decrypted credentials to
// concrete adapter instances. It owns the three static capability tables:
// which platforms exist, which have a real implementation, and which
// credential fields each one requires.
package factory

import (
	"sort"

	"github.com/ignite/platform-hub/internal/platform"
	"github.com/ignite/platform-hub/internal/platform/activecampaign"
	"github.com/ignite/platform-hub/internal/platform/beehiiv"
	"github.com/ignite/platform-hub/internal/platform/brevo"
	"github.com/ignite/platform-hub/internal/platform/constantcontact"
	"github.com/ignite/platform-hub/internal/platform/convertkit"
	"github.com/ignite/platform-hub/internal/platform/klaviyo"
	"github.com/ignite/platform-hub/internal/platform/mailchimp"
	"github.com/ignite/platform-hub/internal/platform/sendgrid"
	"github.com/ignite/platform-hub/internal/platform/stub"
)

// implementedPlatforms marks which supported platforms have a real adapter.
// Entries set to false resolve to the stub adapter so the rest of the system
// can treat every platform uniformly.
var implementedPlatforms = map[string]bool{
	"mailchimp":       true,
	"sendgrid":        true,
	"klaviyo":         true,
	"activecampaign":  true,
	"brevo":           true,
	"beehiiv":         true,
	"convertkit":      true,
	"constantcontact": true,
	"hubspot":         false,
	"omnisend":        false,
}

// requiredCredentialFields lists the credential bag keys each platform needs.
// Validated before credentials are ever encrypted, and again before an
// adapter is constructed.
var requiredCredentialFields = map[string][]string{
	"mailchimp":       {"api_key"},
	"sendgrid":        {"api_key"},
	"klaviyo":         {"api_key"},
	"activecampaign":  {"api_key", "account_name"},
	"brevo":           {"api_key"},
	"beehiiv":         {"api_key", "publication_id"},
	"convertkit":      {"api_secret"},
	"constantcontact": {"access_token", "refresh_token", "client_id", "client_secret"},
	"hubspot":         {"access_token"},
	"omnisend":        {"api_key"},
}

// SupportedPlatforms returns all known platform identifiers, sorted.
func SupportedPlatforms() []string {
	names := make([]string, 0, len(implementedPlatforms))
	for name := range implementedPlatforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSupported reports whether the platform identifier is known at all.
func IsSupported(name string) bool {
	_, ok := implementedPlatforms[name]
	return ok
}

// IsImplemented reports whether a real adapter exists for the platform.
func IsImplemented(name string) bool {
	return implementedPlatforms[name]
}

// RequiredCredentialFields returns the credential keys a platform needs.
func RequiredCredentialFields(name string) []string {
	return requiredCredentialFields[name]
}

// ValidateCredentials checks a credential bag against the platform's
// required fields. Used by credential-update flows before encryption.
func ValidateCredentials(name string, credentials map[string]string) error {
	if !IsSupported(name) {
		return platform.NewValidationError("unsupported platform: %s", name)
	}
	for _, field := range requiredCredentialFields[name] {
		if credentials[field] == "" {
			return platform.NewValidationError("platform %s requires credential field %q", name, field)
		}
	}
	return nil
}

// New builds the adapter for a platform from decrypted credentials.
// Supported-but-unimplemented platforms get the stub adapter.
func New(name, clientID string, credentials map[string]string, opts platform.Options) (platform.Adapter, error) {
	if err := ValidateCredentials(name, credentials); err != nil {
		return nil, err
	}
	if !IsImplemented(name) {
		return stub.New(name, clientID), nil
	}

	opts = opts.WithDefaults()

	switch name {
	case "mailchimp":
		return mailchimp.New(clientID, credentials, opts)
	case "sendgrid":
		return sendgrid.New(clientID, credentials, opts)
	case "klaviyo":
		return klaviyo.New(clientID, credentials, opts)
	case "activecampaign":
		return activecampaign.New(clientID, credentials, opts)
	case "brevo":
		return brevo.New(clientID, credentials, opts)
	case "beehiiv":
		return beehiiv.New(clientID, credentials, opts)
	case "convertkit":
		return convertkit.New(clientID, credentials, opts)
	case "constantcontact":
		return constantcontact.New(clientID, credentials, opts)
	default:
		// Unreachable: IsImplemented gates the switch
		return stub.New(name, clientID), nil
	}
}
