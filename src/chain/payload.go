package chain

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/ugorji/go/codec"
)

// ErrUnsupportedPayload is returned for payload types that the codec cannot
// encode without losing information.
var ErrUnsupportedPayload = errors.New("unsupported payload type")

var (
	selferType            = reflect.TypeOf((*codec.Selfer)(nil)).Elem()
	binaryMarshalerType   = reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem()
	binaryUnmarshalerType = reflect.TypeOf((*encoding.BinaryUnmarshaler)(nil)).Elem()
)

// checked caches the result of checkType per payload type.
var checked sync.Map

// CheckPayloadType reports whether values of T survive encoding unchanged.
// Accepted are booleans, integers, floats, strings, arrays of accepted types
// and structs whose fields are all exported, not skipped by a "-" tag and of
// accepted types. Types that encode themselves (codec.Selfer, or
// encoding.BinaryMarshaler with a matching BinaryUnmarshaler) are trusted.
// Pointers, interfaces, channels, functions and complex numbers are rejected.
func CheckPayloadType[T comparable]() error {
	t := reflect.TypeOf((*T)(nil)).Elem()

	if res, ok := checked.Load(t); ok {
		if res == nil {
			return nil
		}
		return res.(error)
	}

	err := checkType(t, t.String())
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrUnsupportedPayload, err)
		checked.Store(t, err)
		return err
	}

	checked.Store(t, nil)
	return nil
}

func checkType(t reflect.Type, path string) error {
	if selfEncoding(t) {
		return nil
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil
	case reflect.Array:
		return checkType(t.Elem(), path+"[]")
	case reflect.Struct:
		return checkStruct(t, path)
	default:
		return fmt.Errorf("%s is a %s", path, t.Kind())
	}
}

func checkStruct(t reflect.Type, path string) error {
	names := make(map[string]bool, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fpath := path + "." + f.Name

		if f.PkgPath != "" {
			return fmt.Errorf("%s is unexported", fpath)
		}

		// The codec reads the codec tag, then the json tag.
		tag := f.Tag.Get("codec")
		if tag == "" {
			tag = f.Tag.Get("json")
		}
		name := strings.Split(tag, ",")[0]
		if name == "-" {
			return fmt.Errorf("%s is skipped by its tag", fpath)
		}
		if name == "" {
			name = f.Name
		}
		if names[name] {
			return fmt.Errorf("%s reuses the encoded name %q", fpath, name)
		}
		names[name] = true

		if err := checkType(f.Type, fpath); err != nil {
			return err
		}
	}

	return nil
}

func selfEncoding(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	if t.Implements(selferType) || pt.Implements(selferType) {
		return true
	}
	return (t.Implements(binaryMarshalerType) || pt.Implements(binaryMarshalerType)) &&
		pt.Implements(binaryUnmarshalerType)
}
