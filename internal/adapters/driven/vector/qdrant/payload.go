package qdrant

import (
	"fmt"

	qdrantclient "github.com/qdrant/go-client/qdrant"
)

// toStruct converts chunk metadata into a payload struct. Supported
// values are strings, booleans, integers, floats and string slices.
func toStruct(m map[string]any) (*qdrantclient.Struct, error) {
	fields := make(map[string]*qdrantclient.Value, len(m))
	for k, v := range m {
		val, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		fields[k] = val
	}
	return &qdrantclient.Struct{Fields: fields}, nil
}

func toValue(v any) (*qdrantclient.Value, error) {
	switch x := v.(type) {
	case nil:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_NullValue{}}, nil
	case string:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: x}}, nil
	case bool:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_BoolValue{BoolValue: x}}, nil
	case int:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(x)}}, nil
	case int64:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: x}}, nil
	case float64:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_DoubleValue{DoubleValue: x}}, nil
	case []string:
		values := make([]*qdrantclient.Value, len(x))
		for i, s := range x {
			values[i] = &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: s}}
		}
		return &qdrantclient.Value{Kind: &qdrantclient.Value_ListValue{
			ListValue: &qdrantclient.ListValue{Values: values},
		}}, nil
	case []any:
		values := make([]*qdrantclient.Value, len(x))
		for i, item := range x {
			val, err := toValue(item)
			if err != nil {
				return nil, err
			}
			values[i] = val
		}
		return &qdrantclient.Value{Kind: &qdrantclient.Value_ListValue{
			ListValue: &qdrantclient.ListValue{Values: values},
		}}, nil
	case map[string]any:
		s, err := toStruct(x)
		if err != nil {
			return nil, err
		}
		return &qdrantclient.Value{Kind: &qdrantclient.Value_StructValue{StructValue: s}}, nil
	default:
		return nil, fmt.Errorf("unsupported payload type %T", v)
	}
}

// fromStruct mirrors the shapes encoding/json produces so metadata reads
// the same whichever vector backend stored it.
func fromStruct(s *qdrantclient.Struct) map[string]any {
	out := make(map[string]any, len(s.GetFields()))
	for k, v := range s.GetFields() {
		out[k] = fromValue(v)
	}
	return out
}

func fromValue(v *qdrantclient.Value) any {
	switch x := v.GetKind().(type) {
	case *qdrantclient.Value_StringValue:
		return x.StringValue
	case *qdrantclient.Value_BoolValue:
		return x.BoolValue
	case *qdrantclient.Value_IntegerValue:
		return float64(x.IntegerValue)
	case *qdrantclient.Value_DoubleValue:
		return x.DoubleValue
	case *qdrantclient.Value_ListValue:
		items := x.ListValue.GetValues()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = fromValue(item)
		}
		return out
	case *qdrantclient.Value_StructValue:
		return fromStruct(x.StructValue)
	default:
		return nil
	}
}
