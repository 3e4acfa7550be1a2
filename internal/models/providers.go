package models

// Supported OAuth provider kinds. Linkages live in dedicated User fields
// selected by explicit dispatch, never by dynamic field lookup.
const (
	ProviderFacebook = "facebook"
)

// KnownProvider reports whether kind names a supported provider.
func KnownProvider(kind string) bool {
	return kind == ProviderFacebook
}
