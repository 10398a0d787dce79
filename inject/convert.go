package inject

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cast"
)

var durationType = TypeOf[time.Duration]()

// convertConstant turns a raw constant (as read from a config file, an env variable...) into a value of type typ.
func convertConstant(raw any, typ reflect.Type) (any, error) {
	if raw == nil {
		return nil, fmt.Errorf("cannot convert nil constant to %s", typ)
	}
	if rawTyp := reflect.TypeOf(raw); rawTyp == typ || (typ.Kind() == reflect.Interface && rawTyp.Implements(typ)) {
		return raw, nil
	}

	var (
		converted any
		err       error
	)
	switch typ.Kind() {
	case reflect.String:
		converted, err = cast.ToStringE(raw)
	case reflect.Bool:
		converted, err = cast.ToBoolE(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		converted, err = cast.ToIntE(raw)
	case reflect.Int64:
		if typ == durationType {
			converted, err = cast.ToDurationE(raw)
		} else {
			converted, err = cast.ToInt64E(raw)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		converted, err = cast.ToUint64E(raw)
	case reflect.Float32, reflect.Float64:
		converted, err = cast.ToFloat64E(raw)
	case reflect.Map:
		if typ.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot convert constant to %s: only string keyed maps are supported", typ)
		}
		switch typ.Elem().Kind() {
		case reflect.String:
			converted, err = cast.ToStringMapStringE(raw)
		case reflect.Interface:
			converted, err = cast.ToStringMapE(raw)
		default:
			return nil, fmt.Errorf("cannot convert constant to %s: unsupported map value type", typ)
		}
	case reflect.Slice:
		if typ.Elem().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot convert constant to %s: only string slices are supported", typ)
		}
		converted, err = cast.ToStringSliceE(raw)
	default:
		return nil, fmt.Errorf("cannot convert constant of type %T to %s", raw, typ)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot convert constant %v to %s:\n\t%w", raw, typ, err)
	}

	value := reflect.ValueOf(converted)
	if !value.Type().ConvertibleTo(typ) {
		return nil, fmt.Errorf("cannot convert constant %v to %s", raw, typ)
	}
	if value.Type().Kind() != typ.Kind() && !isNumeric(typ.Kind()) {
		return nil, fmt.Errorf("cannot convert constant %v to %s", raw, typ)
	}
	return value.Convert(typ).Interface(), nil
}

func isNumeric(kind reflect.Kind) bool {
	return kind >= reflect.Int && kind <= reflect.Float64
}
