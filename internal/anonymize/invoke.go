package anonymize

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// invokeOn resolves one chained step on target: a method (case-insensitive),
// an exported struct field, or a map key.
func invokeOn(target interface{}, name string, args []interface{}) (interface{}, error) {
	if target == nil {
		return nil, fmt.Errorf("cannot resolve %q on nil", name)
	}

	v := reflect.ValueOf(target)
	if method, ok := findMethod(v, name); ok {
		return callMethod(method, name, args)
	}

	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, fmt.Errorf("cannot resolve %q on nil", name)
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		field := v.FieldByNameFunc(func(f string) bool { return strings.EqualFold(f, name) })
		if field.IsValid() && field.CanInterface() {
			return field.Interface(), nil
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				if strings.EqualFold(key.String(), name) {
					return v.MapIndex(key).Interface(), nil
				}
			}
		}
	}
	return nil, fmt.Errorf("%T has no method or field %q", target, name)
}

func findMethod(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		if strings.EqualFold(t.Method(i).Name, name) {
			return v.Method(i), true
		}
	}
	return reflect.Value{}, false
}

// callMethod calls method with args converted to its parameter types.
// Missing trailing parameters receive their zero value.
func callMethod(method reflect.Value, name string, args []interface{}) (result interface{}, err error) {
	mt := method.Type()
	if mt.IsVariadic() {
		return nil, fmt.Errorf("variadic method %q is not supported", name)
	}
	if len(args) > mt.NumIn() {
		return nil, fmt.Errorf("method %q takes %d arguments, %d given", name, mt.NumIn(), len(args))
	}

	in := make([]reflect.Value, mt.NumIn())
	for i := range in {
		paramType := mt.In(i)
		if i >= len(args) || args[i] == nil {
			in[i] = reflect.Zero(paramType)
			continue
		}
		arg := reflect.ValueOf(args[i])
		if !arg.Type().ConvertibleTo(paramType) || !sameFamily(arg.Kind(), paramType.Kind()) {
			return nil, fmt.Errorf("argument %d of %q: cannot use %T as %s", i+1, name, args[i], paramType)
		}
		in[i] = arg.Convert(paramType)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("method %q panicked: %v", name, r)
		}
	}()

	out := method.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	default:
		if last := out[len(out)-1]; last.Type().Implements(reflect.TypeOf((*error)(nil)).Elem()) && !last.IsNil() {
			return nil, last.Interface().(error)
		}
		return out[0].Interface(), nil
	}
}

// sameFamily rejects conversions reflect allows but that change meaning,
// such as int to string.
func sameFamily(from, to reflect.Kind) bool {
	numeric := func(k reflect.Kind) bool {
		return (k >= reflect.Int && k <= reflect.Float64)
	}
	switch {
	case numeric(from) && numeric(to):
		return true
	case from == reflect.String && to == reflect.String:
		return true
	case from == reflect.Bool && to == reflect.Bool:
		return true
	}
	return from == to
}

// flatten collapses struct results to their first string field, e.g. an
// address record to its full address line.
func flatten(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	if _, ok := value.(time.Time); ok {
		return value
	}
	if s, ok := value.(fmt.Stringer); ok {
		return s.String()
	}
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return value
	}
	for i := 0; i < v.NumField(); i++ {
		if v.Field(i).Kind() == reflect.String && v.Type().Field(i).IsExported() {
			return v.Field(i).String()
		}
	}
	return value
}
