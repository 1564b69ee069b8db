package mapper

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var fieldCache sync.Map // reflect.Type -> map[string][]int

func structFields(t reflect.Type) map[string][]int {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(map[string][]int)
	}
	fields := make(map[string][]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		fields[name] = f.Index
	}
	fieldCache.Store(t, fields)
	return fields
}

// ToStruct copies a record into the struct pointed to by dest. Struct fields
// are matched by their `db` tag. Nested records fill struct or pointer-to-struct
// fields, lists of records fill slices, and record keys without a matching
// field are ignored.
func ToStruct(rec map[string]any, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("mapper: destination must be a non-nil pointer, got %T", dest)
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Struct {
		return fmt.Errorf("mapper: destination must point to a struct, got %T", dest)
	}
	return fill(rec, elem)
}

// ToStructs converts a list of records into a slice of T
func ToStructs[T any](recs []map[string]any) ([]T, error) {
	out := make([]T, len(recs))
	for i, rec := range recs {
		if err := ToStruct(rec, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FieldValue returns the value of the field of src tagged column, with
// pointers dereferenced. ok is false when src is not a struct or a pointer
// to one, or has no such field.
func FieldValue(src any, column string) (value any, ok bool) {
	rv := reflect.ValueOf(src)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	idx, ok := structFields(rv.Type())[column]
	if !ok {
		return nil, false
	}
	return deref(rv.FieldByIndex(idx).Interface()), true
}

func fill(rec map[string]any, v reflect.Value) error {
	fields := structFields(v.Type())
	for key, val := range rec {
		idx, ok := fields[key]
		if !ok {
			continue
		}
		if err := assign(v.FieldByIndex(idx), val); err != nil {
			return fmt.Errorf("%s.%s: %w", v.Type().Name(), key, err)
		}
	}
	return nil
}

func assign(dst reflect.Value, val any) error {
	if val == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	switch nested := val.(type) {
	case map[string]any:
		if target, ok := structTarget(dst); ok {
			return fill(nested, target)
		}
	case []map[string]any:
		if dst.Kind() == reflect.Slice {
			return assignList(dst, nested)
		}
	}

	src := reflect.ValueOf(val)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		ptr := reflect.New(dst.Type().Elem())
		if err := assign(ptr.Elem(), val); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil
	}
	if convertible(src.Type(), dst.Type()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", val, dst.Type())
}

// structTarget returns the struct to fill for dst, allocating pointers
func structTarget(dst reflect.Value) (reflect.Value, bool) {
	switch {
	case dst.Kind() == reflect.Struct:
		return dst, true
	case dst.Kind() == reflect.Pointer && dst.Type().Elem().Kind() == reflect.Struct:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return dst.Elem(), true
	}
	return reflect.Value{}, false
}

func assignList(dst reflect.Value, recs []map[string]any) error {
	out := reflect.MakeSlice(dst.Type(), len(recs), len(recs))
	for i, rec := range recs {
		target, ok := structTarget(out.Index(i))
		if !ok {
			return fmt.Errorf("cannot fill %s from records", dst.Type())
		}
		if err := fill(rec, target); err != nil {
			return err
		}
	}
	dst.Set(out)
	return nil
}

// convertible rejects the integer to string conversion reflect allows
func convertible(from, to reflect.Type) bool {
	if to.Kind() == reflect.String && from.Kind() != reflect.String {
		return false
	}
	return from.ConvertibleTo(to)
}

func deref(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}
