package storage

import "context"

// ProfileStore persists serialized pool profiles keyed by address.
// Payloads are opaque to the store; the registry owns the encoding.
type ProfileStore interface {
	SaveProfile(ctx context.Context, address string, payload []byte) error
	LoadProfiles(ctx context.Context) (map[string][]byte, error)
}
