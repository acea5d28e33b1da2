package common

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/ternarybob/arbor"
)

// keyRefPattern matches {key-name} references to entries in the KV store
var keyRefPattern = regexp.MustCompile(`\{([a-zA-Z0-9_-]+)\}`)

// ReplaceKeyReferences substitutes {key-name} references in input with values from
// kvMap. Unknown references are left in place and logged.
func ReplaceKeyReferences(input string, kvMap map[string]string, logger arbor.ILogger) string {
	if input == "" {
		return input
	}

	return keyRefPattern.ReplaceAllStringFunc(input, func(match string) string {
		keyName := match[1 : len(match)-1]
		if value, ok := kvMap[keyName]; ok {
			return value
		}
		logger.Warn().
			Str("key", keyName).
			Msg("Unresolved key reference - key not found in KV store")
		return match
	})
}

// ReplaceInStruct resolves {key-name} references in the string and []string fields
// of the struct v points to, descending into nested structs and struct pointers.
// Values are never logged since they are usually secrets.
func ReplaceInStruct(v interface{}, kvMap map[string]string, logger arbor.ILogger) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("ReplaceInStruct requires a non-nil pointer, got %T", v)
	}

	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("ReplaceInStruct requires a struct pointer, got pointer to %v", val.Kind())
	}

	replaceInStructValue(val, "", kvMap, logger)
	return nil
}

func replaceInStructValue(val reflect.Value, prefix string, kvMap map[string]string, logger arbor.ILogger) {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}
		name := prefix + typ.Field(i).Name

		switch field.Kind() {
		case reflect.String:
			if replaced := ReplaceKeyReferences(field.String(), kvMap, logger); replaced != field.String() {
				field.SetString(replaced)
				logger.Debug().Str("field", name).Msg("Resolved key reference in config field")
			}

		case reflect.Struct:
			replaceInStructValue(field, name+".", kvMap, logger)

		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				replaceInStructValue(field.Elem(), name+".", kvMap, logger)
			}

		case reflect.Slice:
			if field.Type().Elem().Kind() != reflect.String {
				continue
			}
			for j := 0; j < field.Len(); j++ {
				elem := field.Index(j)
				if replaced := ReplaceKeyReferences(elem.String(), kvMap, logger); replaced != elem.String() {
					elem.SetString(replaced)
					logger.Debug().Str("field", name).Int("index", j).Msg("Resolved key reference in config field")
				}
			}
		}
	}
}
