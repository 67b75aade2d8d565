package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-productwebhook/core"
	"github.com/uptrace/bun"
)

type FactoryOption func(*RepositoryFactory)

// WithSecretCipher seals endpoint secrets on write and opens them on read.
func WithSecretCipher(cipher core.SecretCipher) FactoryOption {
	return func(f *RepositoryFactory) {
		f.cipher = cipher
	}
}

type RepositoryFactory struct {
	db     *bun.DB
	cipher core.SecretCipher

	configStore *ConfigStore
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(factory)
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// BuildStores accepts a *bun.DB or anything exposing DB() *bun.DB.
func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.configStore != nil {
		return nil
	}
	configStore, err := NewConfigStore(f.db, f.cipher)
	if err != nil {
		return err
	}
	f.configStore = configStore
	return nil
}

func (f *RepositoryFactory) ConfigStore() *ConfigStore {
	if f == nil {
		return nil
	}
	return f.configStore
}

// ConfigSource is ConfigStore typed for the dispatcher.
func (f *RepositoryFactory) ConfigSource() core.ConfigSource {
	if f == nil || f.configStore == nil {
		return nil
	}
	return f.configStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
