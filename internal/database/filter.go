package database

import (
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Filter selects entities by attribute equality. Keys are either Go field
// names or column names; a nil value matches NULL. An empty Filter matches
// every entity of the type.
type Filter map[string]any

// Where builds a Filter from alternating attribute/value pairs.
func Where(pairs ...any) Filter {
	if len(pairs)%2 != 0 {
		panic("database.Where: odd number of arguments")
	}
	f := make(Filter, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("database.Where: attribute name %v is not a string", pairs[i]))
		}
		f[key] = pairs[i+1]
	}
	return f
}

// parseSchema resolves the gorm schema of an entity, pointer to entity,
// or pointer to a slice of entities.
func parseSchema(db *gorm.DB, model any) (*schema.Schema, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidEntity)
	}
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntity, err)
	}
	return stmt.Schema, nil
}

// columns translates filter attributes into column names of s.
func (f Filter) columns(s *schema.Schema) (map[string]any, error) {
	conds := make(map[string]any, len(f))
	for attr, value := range f {
		field := s.LookUpField(attr)
		if field == nil || field.DBName == "" {
			return nil, fmt.Errorf("%w: %s has no attribute %q", ErrUnknownAttribute, s.Name, attr)
		}
		conds[field.DBName] = value
	}
	return conds, nil
}

func typeName(target any) string {
	if target == nil {
		return ""
	}
	t := reflect.TypeOf(target)
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return t.Name()
}
