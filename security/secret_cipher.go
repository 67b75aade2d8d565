package security

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-productwebhook/core"
)

const (
	sealPrefix    = "productwebhook.secret.v1:"
	sealAlgorithm = "aes-256-gcm"

	defaultKeyID = "app-key"
)

// sealedSecret is the JSON document stored after sealPrefix.
type sealedSecret struct {
	KeyID      string `json:"kid"`
	Version    int    `json:"ver"`
	Algorithm  string `json:"alg"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

type keySpec struct {
	id       string
	version  int
	material []byte
}

type sealingKey struct {
	id      string
	version int
	aead    cipher.AEAD
}

type CipherOption func(*cipherSettings)

type cipherSettings struct {
	current keySpec
	retired []keySpec
}

func WithKeyID(id string) CipherOption {
	return func(s *cipherSettings) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			s.current.id = trimmed
		}
	}
}

func WithKeyVersion(version int) CipherOption {
	return func(s *cipherSettings) {
		if version > 0 {
			s.current.version = version
		}
	}
}

// WithRetiredKey keeps an older key around for opening secrets sealed
// before a rotation. Retired keys never seal.
func WithRetiredKey(id string, version int, material []byte) CipherOption {
	return func(s *cipherSettings) {
		s.retired = append(s.retired, keySpec{
			id:       strings.TrimSpace(id),
			version:  version,
			material: bytes.TrimSpace(material),
		})
	}
}

// AppKeyCipher seals webhook signing secrets at rest with an application
// key (AES-GCM). Sealed values name the key id and version used, so a
// rotated key can still open older values through WithRetiredKey.
type AppKeyCipher struct {
	current sealingKey
	retired []sealingKey
}

func NewAppKeyCipher(keyMaterial []byte, opts ...CipherOption) (*AppKeyCipher, error) {
	settings := cipherSettings{current: keySpec{
		id:       defaultKeyID,
		version:  1,
		material: bytes.TrimSpace(keyMaterial),
	}}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	current, err := newSealingKey(settings.current)
	if err != nil {
		return nil, err
	}
	c := &AppKeyCipher{current: current}
	for _, spec := range settings.retired {
		key, err := newSealingKey(spec)
		if err != nil {
			return nil, fmt.Errorf("security: retired key %q: %w", spec.id, err)
		}
		c.retired = append(c.retired, key)
	}
	return c, nil
}

func NewAppKeyCipherFromString(key string, opts ...CipherOption) (*AppKeyCipher, error) {
	return NewAppKeyCipher([]byte(key), opts...)
}

func (c *AppKeyCipher) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("security: cipher is nil")
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("security: plaintext is required")
	}
	nonce := make([]byte, c.current.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("security: nonce generation failed: %w", err)
	}
	doc, err := json.Marshal(sealedSecret{
		KeyID:      c.current.id,
		Version:    c.current.version,
		Algorithm:  sealAlgorithm,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(c.current.aead.Seal(nil, nonce, plaintext, nil)),
	})
	if err != nil {
		return nil, fmt.Errorf("security: encode sealed secret: %w", err)
	}
	return append([]byte(sealPrefix), doc...), nil
}

func (c *AppKeyCipher) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("security: cipher is nil")
	}
	doc, err := parseSealed(ciphertext)
	if err != nil {
		return nil, err
	}
	key, ok := c.keyFor(doc.KeyID, doc.Version)
	if !ok {
		return nil, fmt.Errorf("security: no key for kid %q version %d", doc.KeyID, doc.Version)
	}
	nonce, err := base64.StdEncoding.DecodeString(doc.Nonce)
	if err != nil {
		return nil, fmt.Errorf("security: decode nonce: %w", err)
	}
	if len(nonce) != key.aead.NonceSize() {
		return nil, fmt.Errorf("security: invalid nonce size %d", len(nonce))
	}
	sealed, err := base64.StdEncoding.DecodeString(doc.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("security: decode ciphertext: %w", err)
	}
	plaintext, err := key.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("security: open sealed secret: %w", err)
	}
	return plaintext, nil
}

// Metadata returns the id and version of the sealing key.
func (c *AppKeyCipher) Metadata() (string, int) {
	if c == nil {
		return "", 0
	}
	return c.current.id, c.current.version
}

// IsSealed reports whether value was produced by AppKeyCipher.Encrypt.
func IsSealed(value []byte) bool {
	return bytes.HasPrefix(value, []byte(sealPrefix))
}

// keyFor matches on id and version. A document without an id is tried
// with the current key.
func (c *AppKeyCipher) keyFor(id string, version int) (sealingKey, bool) {
	if id == "" {
		return c.current, true
	}
	for _, key := range append([]sealingKey{c.current}, c.retired...) {
		if key.id == id && (version <= 0 || key.version == version) {
			return key, true
		}
	}
	return sealingKey{}, false
}

func newSealingKey(spec keySpec) (sealingKey, error) {
	if len(spec.material) == 0 {
		return sealingKey{}, fmt.Errorf("security: key material is required")
	}
	if spec.id == "" {
		spec.id = defaultKeyID
	}
	if spec.version <= 0 {
		spec.version = 1
	}
	block, err := aes.NewCipher(deriveKey(spec.material))
	if err != nil {
		return sealingKey{}, fmt.Errorf("security: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return sealingKey{}, fmt.Errorf("security: create gcm: %w", err)
	}
	return sealingKey{id: spec.id, version: spec.version, aead: aead}, nil
}

func parseSealed(value []byte) (sealedSecret, error) {
	if len(value) == 0 {
		return sealedSecret{}, fmt.Errorf("security: ciphertext is required")
	}
	if !IsSealed(value) {
		return sealedSecret{}, fmt.Errorf("security: value is not a sealed secret")
	}
	var doc sealedSecret
	if err := json.Unmarshal(value[len(sealPrefix):], &doc); err != nil {
		return sealedSecret{}, fmt.Errorf("security: decode sealed secret: %w", err)
	}
	doc.KeyID = strings.TrimSpace(doc.KeyID)
	if alg := strings.ToLower(strings.TrimSpace(doc.Algorithm)); alg != "" && alg != sealAlgorithm {
		return sealedSecret{}, fmt.Errorf("security: unsupported algorithm %q", doc.Algorithm)
	}
	if doc.Ciphertext == "" {
		return sealedSecret{}, fmt.Errorf("security: sealed secret has no ciphertext")
	}
	return doc, nil
}

// deriveKey uses AES-sized material as is and hashes anything else to 32
// bytes.
func deriveKey(material []byte) []byte {
	switch len(material) {
	case 16, 24, 32:
		return bytes.Clone(material)
	}
	sum := sha256.Sum256(material)
	return sum[:]
}

var _ core.SecretCipher = (*AppKeyCipher)(nil)
