package scope

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
	"github.com/goliatone/go-productwebhook/core"
	"github.com/goliatone/go-productwebhook/security"
)

type settings struct {
	Enabled           string `koanf:"enabled" mapstructure:"enabled"`
	UseQueue          string `koanf:"use_queue" mapstructure:"use_queue"`
	Endpoint          string `koanf:"endpoint" mapstructure:"endpoint"`
	Timeout           string `koanf:"timeout" mapstructure:"timeout"`
	AllowedAttributes string `koanf:"allowed_attributes" mapstructure:"allowed_attributes"`
	Secret            string `koanf:"secret" mapstructure:"secret"`
}

// Resolver merges default and store scope values into an EndpointConfig.
// Sealed secrets are opened with Cipher.
type Resolver struct {
	Cipher core.SecretCipher
}

func NewResolver(cipher core.SecretCipher) *Resolver {
	return &Resolver{Cipher: cipher}
}

func (r *Resolver) Resolve(ctx context.Context, storeID int64, defaults Values, store Values) (core.EndpointConfig, error) {
	if storeID <= 0 {
		store = nil
	}
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope(ScopeDefault, 0),
			layerMap(defaults),
			opts.WithSnapshotID[map[string]any](DefaultRef().String()),
		),
		opts.NewLayer(
			opts.NewScope(ScopeStores, 20),
			layerMap(store),
			opts.WithSnapshotID[map[string]any](StoreRef(storeID).String()),
		),
	)
	if err != nil {
		return core.EndpointConfig{}, core.NewConfigurationError(
			fmt.Sprintf("scope: options stack build failed: %v", err),
			map[string]any{"store_id": storeID},
		)
	}
	merged, err := stack.Merge()
	if err != nil {
		return core.EndpointConfig{}, core.NewConfigurationError(
			fmt.Sprintf("scope: options merge failed: %v", err),
			map[string]any{"store_id": storeID},
		)
	}
	decoded, err := cfgx.Build[settings](merged.Value, cfgx.WithDefaults(settings{}))
	if err != nil {
		return core.EndpointConfig{}, core.NewConfigurationError(
			fmt.Sprintf("scope: decode settings failed: %v", err),
			map[string]any{"store_id": storeID},
		)
	}

	secret, err := r.openSecret(ctx, decoded.Secret)
	if err != nil {
		return core.EndpointConfig{}, core.NewConfigurationError(
			fmt.Sprintf("scope: open endpoint secret: %v", err),
			map[string]any{"store_id": storeID},
		)
	}

	return core.EndpointConfig{
		Endpoint:          strings.TrimSpace(decoded.Endpoint),
		Enabled:           ParseFlag(decoded.Enabled),
		UseQueue:          ParseFlag(decoded.UseQueue),
		TimeoutSeconds:    ParseTimeout(decoded.Timeout),
		AllowedAttributes: core.ParseAllowList(decoded.AllowedAttributes),
		Secret:            secret,
	}, nil
}

func (r *Resolver) openSecret(ctx context.Context, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || !security.IsSealed([]byte(value)) {
		return value, nil
	}
	if r == nil || r.Cipher == nil {
		return "", fmt.Errorf("secret is sealed but no cipher is configured")
	}
	opened, err := r.Cipher.Decrypt(ctx, []byte(value))
	if err != nil {
		return "", err
	}
	return string(opened), nil
}

// ParseFlag accepts "1", "true", "yes" and "on"; anything else is false.
func ParseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// ParseTimeout returns the default timeout for missing or non-positive
// values.
func ParseTimeout(raw string) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || parsed <= 0 {
		return core.DefaultTimeoutSeconds
	}
	return parsed
}

func layerMap(values Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		normalized, err := NormalizeKey(key)
		if err != nil {
			continue
		}
		out[normalized] = value
	}
	return out
}
