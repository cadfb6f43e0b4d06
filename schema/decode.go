package schema

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var (
	ErrUnsupportedType = errors.New("schema: unsupported decode target")
	ErrConvert         = errors.New("schema: cannot convert column value")
)

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

// fieldPlan maps a column name to the index path of the struct field it fills.
type fieldPlan map[string][]int

var planCache sync.Map // map[reflect.Type]fieldPlan

// Decode maps generic rows onto T. Struct fields are matched by their `db`
// tag, or by the snake_case form of the field name; `db:"-"` skips a field.
// Columns without a field are ignored. When T is not a struct, each row must
// have exactly one column, which is converted to T.
func Decode[T any, R ~map[string]any](rows []R) ([]T, error) {
	out := make([]T, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() == reflect.Struct && !reflect.PointerTo(typ).Implements(scannerType) {
		plan := planFor(typ)
		for i, row := range rows {
			dst := reflect.ValueOf(&out[i]).Elem()
			if err := decodeStruct(dst, plan, row); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
		}
		return out, nil
	}

	if typ.Kind() == reflect.Map || typ.Kind() == reflect.Slice && typ.Elem().Kind() != reflect.Uint8 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
	}
	for i, row := range rows {
		if len(row) != 1 {
			return nil, fmt.Errorf("row %d: %w: %s needs exactly one column, got %d", i, ErrUnsupportedType, typ, len(row))
		}
		for col, v := range row {
			if err := assign(reflect.ValueOf(&out[i]).Elem(), v); err != nil {
				return nil, fmt.Errorf("row %d: column %q: %w", i, col, err)
			}
		}
	}
	return out, nil
}

func decodeStruct(dst reflect.Value, plan fieldPlan, row map[string]any) error {
	for col, v := range row {
		index, ok := plan[col]
		if !ok {
			index, ok = plan[strings.ToLower(col)]
		}
		if !ok {
			continue
		}
		if err := assign(fieldByIndexAlloc(dst, index), v); err != nil {
			return fmt.Errorf("column %q: %w", col, err)
		}
	}
	return nil
}

// fieldByIndexAlloc walks index, allocating nil embedded pointers on the way.
func fieldByIndexAlloc(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

func planFor(typ reflect.Type) fieldPlan {
	if cached, ok := planCache.Load(typ); ok {
		return cached.(fieldPlan)
	}
	plan := make(fieldPlan)
	buildPlan(typ, nil, plan)
	actual, _ := planCache.LoadOrStore(typ, plan)
	return actual.(fieldPlan)
}

func buildPlan(typ reflect.Type, prefix []int, plan fieldPlan) {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("db")
		if tag == "-" {
			continue
		}
		index := append(append([]int(nil), prefix...), i)

		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			if f.Anonymous && !f.IsExported() {
				continue
			}
			ft = ft.Elem()
		}
		if f.Anonymous && tag == "" && ft.Kind() == reflect.Struct && !reflect.PointerTo(ft).Implements(scannerType) {
			buildPlan(ft, index, plan)
			continue
		}
		if !f.IsExported() {
			continue
		}

		name := tag
		if comma := strings.IndexByte(name, ','); comma >= 0 {
			name = name[:comma]
		}
		if name == "" {
			name = ColumnName(f.Name)
		}
		// Outer fields shadow embedded ones.
		if existing, ok := plan[name]; ok && len(existing) <= len(index) {
			continue
		}
		plan[name] = index
	}
}

// assign stores v into dst, converting between compatible kinds.
func assign(dst reflect.Value, v any) error {
	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(v)
	}

	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst.Type()) {
		if b, ok := v.([]byte); ok {
			dst.Set(reflect.ValueOf(append([]byte(nil), b...)))
			return nil
		}
		dst.Set(src)
		return nil
	}

	if converted, ok := convert(src, dst.Type()); ok {
		dst.Set(converted)
		return nil
	}
	return fmt.Errorf("%w: %s into %s", ErrConvert, src.Type(), dst.Type())
}

func convert(src reflect.Value, to reflect.Type) (reflect.Value, bool) {
	switch {
	case isInt(src.Kind()) && isInt(to.Kind()):
		n := src.Int()
		if reflect.Zero(to).OverflowInt(n) {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(n).Convert(to), true
	case isUint(src.Kind()) && isInt(to.Kind()):
		n := src.Uint()
		if n > 1<<63-1 || reflect.Zero(to).OverflowInt(int64(n)) {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(int64(n)).Convert(to), true
	case isInt(src.Kind()) && isUint(to.Kind()):
		n := src.Int()
		if n < 0 || reflect.Zero(to).OverflowUint(uint64(n)) {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(uint64(n)).Convert(to), true
	case isUint(src.Kind()) && isUint(to.Kind()):
		n := src.Uint()
		if reflect.Zero(to).OverflowUint(n) {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(n).Convert(to), true
	case (isInt(src.Kind()) || isUint(src.Kind()) || isFloat(src.Kind())) && isFloat(to.Kind()):
		return src.Convert(to), true
	case src.Kind() == reflect.Slice && src.Type().Elem().Kind() == reflect.Uint8 && to.Kind() == reflect.String:
		return src.Convert(to), true
	case src.Kind() == reflect.String && to.Kind() == reflect.Slice && to.Elem().Kind() == reflect.Uint8:
		return src.Convert(to), true
	case src.Kind() == reflect.String && to.Kind() == reflect.String:
		return src.Convert(to), true
	case isInt(src.Kind()) && to.Kind() == reflect.Bool:
		// MySQL and SQLite report booleans as integers.
		return reflect.ValueOf(src.Int() != 0).Convert(to), true
	case src.Kind() == reflect.Bool && to.Kind() == reflect.Bool:
		return src.Convert(to), true
	}
	return reflect.Value{}, false
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
