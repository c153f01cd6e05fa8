package reflector

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	ErrNotStruct      = errors.New("target is not a struct")
	ErrFieldNotFound  = errors.New("field not found")
	ErrNotAssignable  = errors.New("value not assignable to field")
	ErrNilTarget      = errors.New("target is nil")
	ErrNotAddressable = errors.New("target is not addressable")
)

// SetField assigns value to the named field of the struct pointed to by
// target. The name matches either the exported Go field name or its json
// tag. target must be a non-nil pointer to a struct.
func SetField(target any, name string, value any) error {
	if target == nil {
		return ErrNilTarget
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: need non-nil pointer, got %T", ErrNotAddressable, target)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s", ErrNotStruct, rv.Kind())
	}

	field, ok := lookupField(rv.Type(), name)
	if !ok {
		return fmt.Errorf("%w: %q on %s", ErrFieldNotFound, name, rv.Type())
	}

	fv := rv.FieldByIndex(field.Index)
	if !fv.CanSet() {
		return fmt.Errorf("%w: %q on %s", ErrNotAssignable, name, rv.Type())
	}

	if value == nil {
		switch fv.Kind() {
		case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		default:
			return fmt.Errorf("%w: nil to %s field %q", ErrNotAssignable, fv.Kind(), name)
		}
	}

	vv := reflect.ValueOf(value)
	if !vv.Type().AssignableTo(fv.Type()) {
		if vv.Type().ConvertibleTo(fv.Type()) && convertible(vv.Kind(), fv.Kind()) {
			vv = vv.Convert(fv.Type())
		} else {
			return fmt.Errorf("%w: %s to field %q (%s)", ErrNotAssignable, vv.Type(), name, fv.Type())
		}
	}
	fv.Set(vv)
	return nil
}

func lookupField(t reflect.Type, name string) (reflect.StructField, bool) {
	if f, ok := t.FieldByName(name); ok && f.IsExported() {
		return f, true
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		if base, _, _ := strings.Cut(tag, ","); base == name {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

// convertible restricts implicit conversions to same-family numeric kinds
// so e.g. an int does not silently become a string.
func convertible(from, to reflect.Kind) bool {
	return numeric(from) && numeric(to)
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
