package sqlstore

import "github.com/goliatone/go-productwebhook/core"

var _ core.ConfigSource = (*ConfigStore)(nil)
