package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm/schema"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

// JobDataSerializerName is the gorm serializer tag for job data columns.
const JobDataSerializerName = "jobdata"

func init() {
	schema.RegisterSerializer(JobDataSerializerName, JobDataSerializer{})
}

// Value type tags. Values of other types are stored as plain JSON and read
// back as the generic JSON types (map[string]any, []any, float64, ...).
const (
	dataString   = "string"
	dataBool     = "bool"
	dataInt      = "int"
	dataInt32    = "int32"
	dataInt64    = "int64"
	dataUint     = "uint"
	dataUint32   = "uint32"
	dataUint64   = "uint64"
	dataFloat32  = "float32"
	dataFloat64  = "float64"
	dataTime     = "time"
	dataDuration = "duration"
	dataNull     = "null"
	dataJSON     = "json"
)

type typedValue struct {
	Type  string          `json:"t"`
	Value json.RawMessage `json:"v,omitempty"`
}

// EncodeJobData renders m as JSON, tagging every value with its Go type so
// that DecodeJobData restores ints as ints rather than float64.
func EncodeJobData(m core.JobDataMap) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]typedValue, len(m))
	for k, v := range m {
		tv, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("storage: job data %q: %w", k, err)
		}
		out[k] = tv
	}
	return json.Marshal(out)
}

func encodeValue(v any) (typedValue, error) {
	var tag string
	switch v := v.(type) {
	case nil:
		return typedValue{Type: dataNull}, nil
	case string:
		tag = dataString
	case bool:
		tag = dataBool
	case int:
		tag = dataInt
	case int32:
		tag = dataInt32
	case int64:
		tag = dataInt64
	case uint:
		tag = dataUint
	case uint32:
		tag = dataUint32
	case uint64:
		tag = dataUint64
	case float32:
		tag = dataFloat32
	case float64:
		tag = dataFloat64
	case time.Time:
		tag = dataTime
	case time.Duration:
		return typedValue{Type: dataDuration, Value: json.RawMessage(fmt.Sprint(int64(v)))}, nil
	default:
		tag = dataJSON
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return typedValue{}, err
	}
	return typedValue{Type: tag, Value: raw}, nil
}

// DecodeJobData parses data written by EncodeJobData. Empty input decodes to
// a nil map.
func DecodeJobData(data []byte) (core.JobDataMap, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var in map[string]typedValue
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("storage: job data: %w", err)
	}
	m := make(core.JobDataMap, len(in))
	for k, tv := range in {
		v, err := decodeValue(tv)
		if err != nil {
			return nil, fmt.Errorf("storage: job data %q: %w", k, err)
		}
		m[k] = v
	}
	return m, nil
}

func decodeValue(tv typedValue) (any, error) {
	switch tv.Type {
	case dataNull:
		return nil, nil
	case dataString:
		return decodeAs[string](tv.Value)
	case dataBool:
		return decodeAs[bool](tv.Value)
	case dataInt:
		return decodeAs[int](tv.Value)
	case dataInt32:
		return decodeAs[int32](tv.Value)
	case dataInt64:
		return decodeAs[int64](tv.Value)
	case dataUint:
		return decodeAs[uint](tv.Value)
	case dataUint32:
		return decodeAs[uint32](tv.Value)
	case dataUint64:
		return decodeAs[uint64](tv.Value)
	case dataFloat32:
		return decodeAs[float32](tv.Value)
	case dataFloat64:
		return decodeAs[float64](tv.Value)
	case dataTime:
		return decodeAs[time.Time](tv.Value)
	case dataDuration:
		n, err := decodeAs[int64](tv.Value)
		return time.Duration(n), err
	case dataJSON:
		return decodeAs[any](tv.Value)
	default:
		return nil, fmt.Errorf("unknown value type %q", tv.Type)
	}
}

func decodeAs[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

// JobDataSerializer is the gorm serializer for core.JobDataMap columns.
type JobDataSerializer struct{}

// Scan implements schema.SerializerInterface.
func (JobDataSerializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue any) error {
	var data []byte
	switch v := dbValue.(type) {
	case nil:
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("storage: job data column holds %T", dbValue)
	}
	m, err := DecodeJobData(data)
	if err != nil {
		return err
	}
	field.ReflectValueOf(ctx, dst).Set(reflect.ValueOf(m))
	return nil
}

// Value implements schema.SerializerValuerInterface.
func (JobDataSerializer) Value(_ context.Context, _ *schema.Field, _ reflect.Value, fieldValue any) (any, error) {
	m, _ := fieldValue.(core.JobDataMap)
	if m == nil {
		return nil, nil
	}
	data, err := EncodeJobData(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
