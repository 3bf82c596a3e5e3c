// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package project converts between OPC UA domain values (DataValue,
// Variant, StatusCode) and the canonical JSON value model used throughout
// the agent, exactly as original types.rs / opcua/mod.rs's IntoVariant do.
package project

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gopcua/opcua/ua"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// ToJSON projects an OPC UA DataValue into the canonical
// {timestamp, source_timestamp?, server_timestamp?, value, status} object.
func ToJSON(dv *ua.DataValue) map[string]any {
	m := map[string]any{}

	timestamp := time.Now()
	switch {
	case dv.HasSourceTimestamp() && !dv.SourceTimestamp.IsZero():
		timestamp = dv.SourceTimestamp
	case dv.HasServerTimestamp() && !dv.ServerTimestamp.IsZero():
		timestamp = dv.ServerTimestamp
	}
	m["timestamp"] = formatTime(timestamp)

	if dv.HasSourceTimestamp() && !dv.SourceTimestamp.IsZero() {
		m["source_timestamp"] = formatTime(dv.SourceTimestamp)
	}
	if dv.HasServerTimestamp() && !dv.ServerTimestamp.IsZero() {
		m["server_timestamp"] = formatTime(dv.ServerTimestamp)
	}

	m["value"] = VariantToJSON(dv.Value)

	status := "Good"
	if dv.Status != nil {
		status = dv.Status.Error()
	}
	m["status"] = status

	return m
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// VariantToJSON recursively projects an OPC UA Variant into a JSON value.
// Arrays recurse element-wise; ExtensionObjects fall back to nil if they
// can't be marshaled through the library's own encoder.
func VariantToJSON(v *ua.Variant) any {
	if v == nil {
		return nil
	}

	switch v.Type() {
	case ua.TypeIDBoolean, ua.TypeIDSByte, ua.TypeIDByte,
		ua.TypeIDInt16, ua.TypeIDUint16,
		ua.TypeIDInt32, ua.TypeIDUint32,
		ua.TypeIDInt64, ua.TypeIDUint64,
		ua.TypeIDFloat, ua.TypeIDDouble,
		ua.TypeIDString:
		return v.Value()

	case ua.TypeIDDateTime:
		if t, ok := v.Value().(time.Time); ok {
			return formatTime(t)
		}
		return nil

	case ua.TypeIDByteString:
		if b, ok := v.Value().([]byte); ok {
			return base64.StdEncoding.EncodeToString(b)
		}
		return nil

	case ua.TypeIDGUID:
		return stringer(v.Value())

	case ua.TypeIDStatusCode:
		if code, ok := v.Value().(ua.StatusCode); ok {
			return code.Error()
		}
		return stringer(v.Value())

	case ua.TypeIDQualifiedName:
		if qn, ok := v.Value().(*ua.QualifiedName); ok {
			return map[string]any{
				"namespace": qn.NamespaceIndex,
				"name":      qn.Name,
			}
		}
		return nil

	case ua.TypeIDLocalizedText, ua.TypeIDNodeID, ua.TypeIDExpandedNodeID, ua.TypeIDXMLElement:
		return stringer(v.Value())

	case ua.TypeIDExtensionObject:
		b, err := json.Marshal(v.Value())
		if err != nil {
			return nil
		}
		var out any
		if err := json.Unmarshal(b, &out); err != nil {
			return nil
		}
		return out

	default:
		if arr, ok := v.Value().([]*ua.Variant); ok {
			out := make([]any, len(arr))
			for i, elem := range arr {
				out[i] = VariantToJSON(elem)
			}
			return out
		}
		return v.Value()
	}
}

func stringer(v any) any {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return v
}
