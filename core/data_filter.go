package core

import "strings"

var sensitiveAttributes = map[string]struct{}{
	"cost":                   {},
	"password":               {},
	"tax_class_id":           {},
	"tier_price":             {},
	"media_gallery":          {},
	"custom_layout_update":   {},
	"custom_design":          {},
	"page_layout":            {},
	"options_container":      {},
	"country_of_manufacture": {},
}

var systemAttributes = map[string]struct{}{
	"entity_id":         {},
	"attribute_set_id":  {},
	"created_at":        {},
	"updated_at":        {},
	"has_options":       {},
	"required_options":  {},
	"is_recurring":      {},
	"recurring_profile": {},
}

// DataFilter reduces a product record to the attributes that may leave the
// process. It holds no state and is safe for concurrent use.
type DataFilter struct{}

func NewDataFilter() DataFilter {
	return DataFilter{}
}

// Filter keeps only allow-listed keys when allowList is non-empty and drops
// the sensitive and system attributes otherwise. The input is not modified.
func (DataFilter) Filter(record Record, allowList []string) Record {
	allowed := normalizeAllowList(allowList)
	if len(allowed) > 0 {
		return record.Select(func(key string) bool {
			_, ok := allowed[key]
			return ok
		})
	}
	return record.Select(func(key string) bool {
		return !IsDeniedAttribute(key)
	})
}

// IsDeniedAttribute reports whether key is removed in deny-list mode.
func IsDeniedAttribute(key string) bool {
	if _, ok := sensitiveAttributes[key]; ok {
		return true
	}
	_, ok := systemAttributes[key]
	return ok
}

// ParseAllowList splits a comma separated attribute list. Entries are
// trimmed, empties dropped and duplicates removed keeping the first.
func ParseAllowList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

func normalizeAllowList(allowList []string) map[string]struct{} {
	if len(allowList) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(allowList))
	for _, key := range allowList {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = struct{}{}
	}
	return out
}
