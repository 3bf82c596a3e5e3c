// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"math"

	"github.com/gopcua/opcua/ua"
)

// ToVariant converts a canonical JSON value into an OPC UA Variant for
// command writes, the reverse of VariantToJSON. It mirrors the original's
// IntoVariant dispatch exactly: null becomes an empty variant, numbers
// prefer unsigned then signed integers then double, strings pass through,
// arrays are rejected, and objects dispatch on their single key to a named
// OPC UA scalar type.
func ToVariant(v any) *ua.Variant {
	switch val := v.(type) {
	case nil:
		// gopcua has no exported "empty variant" constructor; the zero
		// value already carries TypeID Null and an unset inner value.
		return &ua.Variant{}

	case bool:
		return mustVariant(val)

	case float64:
		return numberToVariant(val)

	case int:
		return numberToVariant(float64(val))

	case string:
		return mustVariant(val)

	case []any:
		return statusVariant(ua.StatusBadDataEncodingUnsupported)

	case map[string]any:
		return objectToVariant(val)

	default:
		return statusVariant(ua.StatusBadInvalidArgument)
	}
}

func numberToVariant(f float64) *ua.Variant {
	if f != math.Trunc(f) {
		return mustVariant(f)
	}
	if f >= 0 {
		return mustVariant(uint64(f))
	}
	return mustVariant(int64(f))
}

// objectToVariant dispatches a single-key JSON object such as
// {"Int32": 100} to the OPC UA scalar type it names. An object with any
// other shape (zero keys, multiple keys, an unrecognized name, or a value
// of the wrong JSON type) is reported as a BadDataEncodingInvalid status,
// matching the original's serde_json::from_value::<Variant> failure path.
func objectToVariant(obj map[string]any) *ua.Variant {
	if len(obj) != 1 {
		return statusVariant(ua.StatusBadDataEncodingInvalid)
	}

	for name, raw := range obj {
		switch name {
		case "Boolean":
			if b, ok := raw.(bool); ok {
				return mustVariant(b)
			}
		case "SByte":
			if n, ok := asInt(raw); ok {
				return mustVariant(int8(n))
			}
		case "Byte":
			if n, ok := asInt(raw); ok {
				return mustVariant(uint8(n))
			}
		case "Int16":
			if n, ok := asInt(raw); ok {
				return mustVariant(int16(n))
			}
		case "UInt16":
			if n, ok := asInt(raw); ok {
				return mustVariant(uint16(n))
			}
		case "Int32":
			if n, ok := asInt(raw); ok {
				return mustVariant(int32(n))
			}
		case "UInt32":
			if n, ok := asInt(raw); ok {
				return mustVariant(uint32(n))
			}
		case "Int64":
			if n, ok := asInt(raw); ok {
				return mustVariant(int64(n))
			}
		case "UInt64":
			if n, ok := asInt(raw); ok {
				return mustVariant(uint64(n))
			}
		case "Float":
			if n, ok := asFloat(raw); ok {
				return mustVariant(float32(n))
			}
		case "Double":
			if n, ok := asFloat(raw); ok {
				return mustVariant(n)
			}
		case "String":
			if s, ok := raw.(string); ok {
				return mustVariant(s)
			}
		}
		return statusVariant(ua.StatusBadDataEncodingInvalid)
	}

	return statusVariant(ua.StatusBadDataEncodingInvalid)
}

func asInt(v any) (int64, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func asFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func mustVariant(v any) *ua.Variant {
	variant, err := ua.NewVariant(v)
	if err != nil {
		return statusVariant(ua.StatusBadInvalidArgument)
	}
	return variant
}

func statusVariant(code ua.StatusCode) *ua.Variant {
	variant, _ := ua.NewVariant(code)
	return variant
}
