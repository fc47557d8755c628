package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/cryptox"
)

// Sealed encrypts every value before it reaches the wrapped Store. Keys are
// stored in the clear.
type Sealed struct {
	Store
	sealer *cryptox.Sealer
	log    *slog.Logger
}

func NewSealed(inner Store, sealer *cryptox.Sealer, log *slog.Logger) *Sealed {
	return &Sealed{Store: inner, sealer: sealer, log: log}
}

// Get opens the stored value. A value that no longer decrypts (the master
// key changed) is reported as absent.
func (s *Sealed) Get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.Store.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}

	sealed, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		s.log.Warn("stored value is not sealed, ignoring it", "key", key)
		return "", false, nil
	}
	plain, err := s.sealer.Open(sealed)
	if err != nil {
		s.log.Warn("stored value cannot be opened, ignoring it", "key", key, "err", err)
		return "", false, nil
	}
	return string(plain), true, nil
}

func (s *Sealed) SetMany(ctx context.Context, kv map[string]string) error {
	out := make(map[string]string, len(kv))
	for k, v := range kv {
		sealed, err := s.sealer.Seal([]byte(v))
		if err != nil {
			return fmt.Errorf("failed to seal %q: %w", k, err)
		}
		out[k] = base64.RawURLEncoding.EncodeToString(sealed)
	}
	return s.Store.SetMany(ctx, out)
}
