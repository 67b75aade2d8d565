package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func configValueHandlers() repository.ModelHandlers[*configValueRecord] {
	return repository.ModelHandlers[*configValueRecord]{
		NewRecord: func() *configValueRecord {
			return &configValueRecord{}
		},
		GetID: func(record *configValueRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *configValueRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *configValueRecord) string {
			if record == nil {
				return ""
			}
			return record.ID
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
