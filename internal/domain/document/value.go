package document

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind вид значения поля документа
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value - значение поля документа. Вместо нетипизированного interface{}
// используется размеченное объединение примитивов, массивов и вложенных
// объектов, чтобы слияние и разрешение конфликтов оставались исчерпывающими.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	arr  []Value
	obj  map[string]Value
}

// Null возвращает null-значение
func Null() Value {
	return Value{kind: KindNull}
}

// Bool возвращает булево значение
func Bool(v bool) Value {
	return Value{kind: KindBool, b: v}
}

// Number возвращает числовое значение
func Number(v float64) Value {
	return Value{kind: KindNumber, num: v}
}

// String возвращает строковое значение
func String(v string) Value {
	return Value{kind: KindString, str: v}
}

// Array возвращает значение-массив
func Array(items ...Value) Value {
	arr := make([]Value, len(items))
	copy(arr, items)
	return Value{kind: KindArray, arr: arr}
}

// Object возвращает значение-объект
func Object(fields map[string]Value) Value {
	obj := make(map[string]Value, len(fields))
	for k, v := range fields {
		obj[k] = v
	}
	return Value{kind: KindObject, obj: obj}
}

// Kind возвращает вид значения
func (v Value) Kind() Kind {
	return v.kind
}

// BoolVal возвращает булево представление значения
func (v Value) BoolVal() bool {
	return v.b
}

// NumberVal возвращает числовое представление значения
func (v Value) NumberVal() float64 {
	return v.num
}

// StringVal возвращает строковое представление значения
func (v Value) StringVal() string {
	return v.str
}

// ArrayVal возвращает элементы массива
func (v Value) ArrayVal() []Value {
	out := make([]Value, len(v.arr))
	copy(out, v.arr)
	return out
}

// ObjectVal возвращает поля объекта
func (v Value) ObjectVal() map[string]Value {
	out := make(map[string]Value, len(v.obj))
	for k, item := range v.obj {
		out[k] = item
	}
	return out
}

// Clone возвращает глубокую копию значения
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		arr := make([]Value, len(v.arr))
		for i, item := range v.arr {
			arr[i] = item.Clone()
		}
		return Value{kind: KindArray, arr: arr}
	case KindObject:
		obj := make(map[string]Value, len(v.obj))
		for k, item := range v.obj {
			obj[k] = item.Clone()
		}
		return Value{kind: KindObject, obj: obj}
	default:
		return v
	}
}

// Equal сравнивает значения по содержимому
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.num == other.num
	case KindString:
		return v.str == other.str
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for k, item := range v.obj {
			o, ok := other.obj[k]
			if !ok || !item.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON сериализует значение в его естественную JSON-форму
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toAny())
}

// UnmarshalJSON восстанавливает значение из JSON
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := fromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) toAny() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindArray:
		out := make([]interface{}, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.toAny()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.toAny()
		}
		return out
	}
	return nil
}

func fromAny(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case string:
		return String(t), nil
	case []interface{}:
		arr := make([]Value, len(t))
		for i, item := range t {
			parsed, err := fromAny(item)
			if err != nil {
				return Value{}, err
			}
			arr[i] = parsed
		}
		return Value{kind: KindArray, arr: arr}, nil
	case map[string]interface{}:
		obj := make(map[string]Value, len(t))
		for k, item := range t {
			parsed, err := fromAny(item)
			if err != nil {
				return Value{}, err
			}
			obj[k] = parsed
		}
		return Value{kind: KindObject, obj: obj}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// Fields - полезная нагрузка документа: имя поля -> значение
type Fields map[string]Value

// Clone возвращает глубокую копию полей
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v.Clone()
	}
	return out
}

// Equal сравнивает наборы полей по содержимому
func (f Fields) Equal(other Fields) bool {
	if len(f) != len(other) {
		return false
	}
	for k, v := range f {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// Names возвращает отсортированный список имен полей
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
