package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

// configValueRecord is one scoped setting row. (scope, scope_id, path) is
// unique.
type configValueRecord struct {
	bun.BaseModel `bun:"table:product_webhook_config,alias:pwc"`

	ID        string    `bun:"id,pk"`
	Scope     string    `bun:"scope,notnull"`
	ScopeID   int64     `bun:"scope_id,notnull"`
	Path      string    `bun:"path,notnull"`
	Value     string    `bun:"value,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
