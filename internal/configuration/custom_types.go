package configuration

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// stepFieldsHookFunc normalizes step kind and scope values while
// unmarshalling, so "Reference", "REFERENCE" and "reference" all decode to
// the same constant.
func stepFieldsHookFunc() mapstructure.DecodeHookFuncType {
	stepConfigType := reflect.TypeOf(StepConfig{})

	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != stepConfigType {
			return data, nil
		}

		raw, ok := data.(map[string]interface{})
		if !ok {
			return data, nil
		}

		for key, value := range raw {
			lowerKey := strings.ToLower(key)
			if lowerKey != "kind" && lowerKey != "scope" {
				continue
			}
			if text, isString := value.(string); isString {
				raw[key] = strings.ToLower(strings.TrimSpace(text))
			}
		}

		return raw, nil
	}
}
