package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-productwebhook/core"
	"github.com/goliatone/go-productwebhook/scope"
	"github.com/goliatone/go-productwebhook/security"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ConfigStore persists scoped webhook settings and resolves them per store.
// Every EndpointConfig call reads the table; nothing is cached.
type ConfigStore struct {
	db       *bun.DB
	repo     repository.Repository[*configValueRecord]
	cipher   core.SecretCipher
	resolver *scope.Resolver
	now      func() time.Time
}

func NewConfigStore(db *bun.DB, cipher core.SecretCipher) (*ConfigStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*configValueRecord](db, configValueHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid config repository wiring: %w", err)
		}
	}
	return &ConfigStore{
		db:       db,
		repo:     repo,
		cipher:   cipher,
		resolver: scope.NewResolver(cipher),
		now:      time.Now,
	}, nil
}

func (s *ConfigStore) EndpointConfig(ctx context.Context, storeID int64) (core.EndpointConfig, error) {
	if s == nil || s.repo == nil {
		return core.EndpointConfig{}, fmt.Errorf("sqlstore: config store is not configured")
	}
	defaults, err := s.Values(ctx, scope.DefaultRef())
	if err != nil {
		return core.EndpointConfig{}, err
	}
	var store scope.Values
	if storeID > 0 {
		store, err = s.Values(ctx, scope.StoreRef(storeID))
		if err != nil {
			return core.EndpointConfig{}, err
		}
	}
	return s.resolver.Resolve(ctx, storeID, defaults, store)
}

// Values returns the raw settings stored for ref. Sealed secrets are returned
// as stored.
func (s *ConfigStore) Values(ctx context.Context, ref scope.Ref) (scope.Values, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: config store is not configured")
	}
	ref, err := scope.NormalizeRef(ref)
	if err != nil {
		return nil, err
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("scope", "=", ref.Scope),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.scope_id = ?", ref.ID)
		}),
		repository.OrderBy("path ASC"),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list config values for %s: %w", ref, err)
	}
	out := make(scope.Values, len(records))
	for _, record := range records {
		out[record.Path] = record.Value
	}
	return out, nil
}

// Set upserts one setting. The secret key is sealed when a cipher is set.
func (s *ConfigStore) Set(ctx context.Context, ref scope.Ref, key string, value string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: config store is not configured")
	}
	ref, err := scope.NormalizeRef(ref)
	if err != nil {
		return err
	}
	key, err = scope.NormalizeKey(key)
	if err != nil {
		return err
	}
	value, err = s.sealValue(ctx, key, value)
	if err != nil {
		return err
	}
	now := s.now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findConfigValueTx(ctx, tx, ref, key)
		if err != nil {
			return err
		}
		if record == nil {
			record = &configValueRecord{
				ID:        uuid.NewString(),
				Scope:     ref.Scope,
				ScopeID:   ref.ID,
				Path:      key,
				Value:     value,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
				return insertErr
			}
			return nil
		}
		record.Value = value
		record.UpdatedAt = now
		if _, updateErr := tx.NewUpdate().
			Model(record).
			Column("value", "updated_at").
			Where("id = ?", record.ID).
			Exec(ctx); updateErr != nil {
			return updateErr
		}
		return nil
	})
}

func (s *ConfigStore) Delete(ctx context.Context, ref scope.Ref, key string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: config store is not configured")
	}
	ref, err := scope.NormalizeRef(ref)
	if err != nil {
		return err
	}
	key, err = scope.NormalizeKey(key)
	if err != nil {
		return err
	}
	_, err = s.db.NewDelete().
		Model((*configValueRecord)(nil)).
		Where("scope = ?", ref.Scope).
		Where("scope_id = ?", ref.ID).
		Where("path = ?", key).
		Exec(ctx)
	return err
}

func (s *ConfigStore) sealValue(ctx context.Context, key string, value string) (string, error) {
	if key != scope.KeySecret || s.cipher == nil || value == "" || security.IsSealed([]byte(value)) {
		return value, nil
	}
	sealed, err := s.cipher.Encrypt(ctx, []byte(value))
	if err != nil {
		return "", fmt.Errorf("sqlstore: seal endpoint secret: %w", err)
	}
	return string(sealed), nil
}

func findConfigValueTx(ctx context.Context, tx bun.Tx, ref scope.Ref, key string) (*configValueRecord, error) {
	record := &configValueRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.scope = ?", ref.Scope).
		Where("?TableAlias.scope_id = ?", ref.ID).
		Where("?TableAlias.path = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
