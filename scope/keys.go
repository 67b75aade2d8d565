package scope

import (
	"fmt"
	"strings"
)

const (
	ScopeDefault = "default"
	ScopeStores  = "stores"
)

const (
	KeyEnabled           = "enabled"
	KeyUseQueue          = "use_queue"
	KeyEndpoint          = "endpoint"
	KeyTimeout           = "timeout"
	KeyAllowedAttributes = "allowed_attributes"
	KeySecret            = "secret"
)

var knownKeys = map[string]struct{}{
	KeyEnabled:           {},
	KeyUseQueue:          {},
	KeyEndpoint:          {},
	KeyTimeout:           {},
	KeyAllowedAttributes: {},
	KeySecret:            {},
}

// Values holds raw settings of one scope keyed by setting name.
type Values map[string]string

func (v Values) clone() Values {
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = value
	}
	return out
}

// Ref identifies a scope. The default scope always has ID 0.
type Ref struct {
	Scope string
	ID    int64
}

func DefaultRef() Ref {
	return Ref{Scope: ScopeDefault}
}

func StoreRef(storeID int64) Ref {
	return Ref{Scope: ScopeStores, ID: storeID}
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%d", r.Scope, r.ID)
}

// NormalizeRef validates a scope reference.
func NormalizeRef(ref Ref) (Ref, error) {
	ref.Scope = strings.ToLower(strings.TrimSpace(ref.Scope))
	switch ref.Scope {
	case ScopeDefault:
		if ref.ID != 0 {
			return Ref{}, fmt.Errorf("scope: default scope id must be 0, got %d", ref.ID)
		}
	case ScopeStores:
		if ref.ID < 0 {
			return Ref{}, fmt.Errorf("scope: store id must not be negative, got %d", ref.ID)
		}
	default:
		return Ref{}, fmt.Errorf("scope: unsupported scope %q", ref.Scope)
	}
	return ref, nil
}

// NormalizeKey validates a setting name.
func NormalizeKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if _, ok := knownKeys[key]; !ok {
		return "", fmt.Errorf("scope: unknown setting %q", key)
	}
	return key, nil
}
