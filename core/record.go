package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	FieldEntityID = "entity_id"
	FieldStoreID  = "store_id"
)

type Field struct {
	Key   string
	Value Value
}

// Record is an ordered, immutable view of one product at save time.
// Operations that change the field set return a new Record.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord builds a Record in argument order. A repeated key keeps its
// first position and takes the last value.
func NewRecord(fields ...Field) Record {
	record := Record{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, field := range fields {
		record.put(field.Key, field.Value)
	}
	return record
}

// RecordFromMap converts a plain map. Keys are sorted so the result does
// not depend on map iteration order.
func RecordFromMap(values map[string]any) (Record, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	fields := make([]Field, 0, len(keys))
	for _, key := range keys {
		value, err := ValueOf(values[key])
		if err != nil {
			return Record{}, fmt.Errorf("core: field %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: value})
	}
	return NewRecord(fields...), nil
}

func (r *Record) put(key string, value Value) {
	if r.index == nil {
		r.index = map[string]int{}
	}
	if position, ok := r.index[key]; ok {
		r.fields[position].Value = value
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

func (r Record) Len() int { return len(r.fields) }

func (r Record) Get(key string) (Value, bool) {
	position, ok := r.index[key]
	if !ok {
		return Value{}, false
	}
	return r.fields[position].Value, true
}

func (r Record) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for _, field := range r.fields {
		keys = append(keys, field.Key)
	}
	return keys
}

func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

func (r Record) With(key string, value Value) Record {
	next := NewRecord(r.fields...)
	next.put(key, value)
	return next
}

// Select keeps the fields accepted by keep, in record order.
func (r Record) Select(keep func(key string) bool) Record {
	fields := make([]Field, 0, len(r.fields))
	for _, field := range r.fields {
		if keep(field.Key) {
			fields = append(fields, field)
		}
	}
	return NewRecord(fields...)
}

func (r Record) Equal(other Record) bool {
	if len(r.fields) != len(other.fields) {
		return false
	}
	for i, field := range r.fields {
		candidate := other.fields[i]
		if field.Key != candidate.Key || !field.Value.Equal(candidate.Value) {
			return false
		}
	}
	return true
}

// EntityID reports the product id when it is a positive integer.
func (r Record) EntityID() (int64, bool) {
	value, ok := r.Get(FieldEntityID)
	if !ok {
		return 0, false
	}
	id, ok := value.AsInt64()
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// StoreID falls back to 0, the default store, when absent or invalid.
func (r Record) StoreID() int64 {
	value, ok := r.Get(FieldStoreID)
	if !ok {
		return 0
	}
	id, ok := value.AsInt64()
	if !ok || id < 0 {
		return 0
	}
	return id
}

func (r Record) ToMap() map[string]any {
	out := make(map[string]any, len(r.fields))
	for _, field := range r.fields {
		out[field.Key] = field.Value.Interface()
	}
	return out
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := field.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("core: field %q: %w", field.Key, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps fields in document order.
func (r *Record) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("core: record must be a json object")
	}
	next := Record{}
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return err
		}
		key, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("core: invalid record key %v", keyToken)
		}
		var raw any
		if err := decoder.Decode(&raw); err != nil {
			return err
		}
		value, err := ValueOf(raw)
		if err != nil {
			return fmt.Errorf("core: field %q: %w", key, err)
		}
		next.put(key, value)
	}
	if _, err := decoder.Token(); err != nil {
		return err
	}
	*r = next
	return nil
}

func (r Record) String() string {
	parts := make([]string, 0, len(r.fields))
	for _, field := range r.fields {
		parts = append(parts, field.Key+"="+field.Value.String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}
