package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator delimits cache key segments.
const KeySeparator = "::"

// KeySerializer builds a cache key from a method name plus arbitrary args,
// typically a filter document. It must produce identical keys for
// semantically identical inputs across calls.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// defaultKeySerializer serializes args deterministically (sorted map keys,
// recursive slices, JSON fallback) and digests the result through xxhash so
// keys stay short and safe for any backend, no matter how large the filter
// document is.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds "method::xxhash(args)". With no args the method alone
// is the key.
func (s *defaultKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteByte('|')
		}
		s.writeValue(&b, arg)
	}

	digest := strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
	return method + KeySeparator + digest
}

func (s *defaultKeySerializer) writeValue(b *strings.Builder, v any) {
	if v == nil {
		b.WriteString("nil")
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			b.WriteString("nil")
			return
		}
		s.writeValue(b, rv.Elem().Interface())

	case reflect.Map:
		if rv.IsNil() {
			b.WriteString("map:nil")
			return
		}
		keys := make([]string, 0, rv.Len())
		byKey := make(map[string]reflect.Value, rv.Len())
		for _, k := range rv.MapKeys() {
			ks := fmt.Sprintf("%v", k.Interface())
			keys = append(keys, ks)
			byKey[ks] = rv.MapIndex(k)
		}
		sort.Strings(keys)
		b.WriteString("map{")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(k)
			b.WriteByte('=')
			s.writeValue(b, byKey[k].Interface())
		}
		b.WriteByte('}')

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			b.WriteString("list:nil")
			return
		}
		b.WriteString("list[")
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			s.writeValue(b, rv.Index(i).Interface())
		}
		b.WriteByte(']')

	case reflect.String:
		b.WriteString(rv.String())

	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		fmt.Fprintf(b, "%v", v)

	default:
		// Structs and anything exotic fall back to JSON; when even that
		// fails, the type name keeps the key stable rather than panicking.
		if data, err := json.Marshal(v); err == nil {
			b.Write(data)
		} else {
			b.WriteString(rv.Type().String())
		}
	}
}
