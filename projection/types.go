package projection

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/tidwall/gjson"
)

// Type is the semantic type of a column. Values are always stored as text and
// converted on the way in and out.
type Type string

const (
	Text        Type = "text"
	Integer     Type = "integer"
	BigInt      Type = "bigint"
	Boolean     Type = "boolean"
	Numeric     Type = "numeric"
	Timestamp   Type = "timestamp"
	TimestampTZ Type = "timestamptz"
	Date        Type = "date"
	JSONB       Type = "jsonb"
	Bytea       Type = "bytea"
)

var typeAliases = map[string]Type{
	"":                            Text,
	"text":                        Text,
	"varchar":                     Text,
	"char":                        Text,
	"character varying":           Text,
	"integer":                     Integer,
	"int":                         Integer,
	"int4":                        Integer,
	"bigint":                      BigInt,
	"int8":                        BigInt,
	"boolean":                     Boolean,
	"bool":                        Boolean,
	"numeric":                     Numeric,
	"decimal":                     Numeric,
	"timestamp":                   Timestamp,
	"timestamp without time zone": Timestamp,
	"timestamptz":                 TimestampTZ,
	"timestamp with time zone":    TimestampTZ,
	"date":                        Date,
	"jsonb":                       JSONB,
	"json":                        JSONB,
	"bytea":                       Bytea,
}

// ParseType normalizes a type name. Unknown names are an error.
func ParseType(name string) (Type, error) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unsupported column type '%s'", name)
	}
	return t, nil
}

type ConversionError struct {
	Value  string
	Type   Type
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert '%s' to %s: %s", e.Value, e.Type, e.Reason)
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var timestamptzLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05Z07",
}

const (
	timestampFormat   = "2006-01-02T15:04:05.999999999"
	timestamptzFormat = time.RFC3339Nano
	dateFormat        = "2006-01-02"
)

func parseTime(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Decode converts a stored value into its Go representation:
// string, int32, int64, bool, jsontext.Value (numeric and jsonb), time.Time or
// []byte.
func Decode(t Type, s string) (any, error) {

	fail := func(reason string) (any, error) {
		return nil, &ConversionError{Value: s, Type: t, Reason: reason}
	}

	switch t {
	case Text:
		return s, nil

	case Integer:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return fail("invalid integer")
		}
		return int32(n), nil

	case BigInt:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fail("invalid bigint")
		}
		return n, nil

	case Boolean:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "t", "true", "yes", "y", "on", "1":
			return true, nil
		case "f", "false", "no", "n", "off", "0":
			return false, nil
		}
		return fail("invalid boolean")

	case Numeric:
		v := strings.TrimSpace(s)
		if r := gjson.Parse(v); !gjson.Valid(v) || r.Type != gjson.Number {
			return fail("invalid numeric")
		}
		return jsontext.Value(v), nil

	case Timestamp:
		ts, ok := parseTime(strings.TrimSpace(s), timestampLayouts)
		if !ok {
			return fail("invalid timestamp")
		}
		return ts, nil

	case TimestampTZ:
		ts, ok := parseTime(strings.TrimSpace(s), timestamptzLayouts)
		if !ok {
			return fail("invalid timestamptz")
		}
		return ts, nil

	case Date:
		d, err := time.Parse(dateFormat, strings.TrimSpace(s))
		if err != nil {
			return fail("invalid date")
		}
		return d, nil

	case JSONB:
		if !gjson.Valid(s) {
			return fail("invalid json")
		}
		// members are sorted, numbers keep their text
		v := jsontext.Value(s)
		if err := v.Canonicalize(jsontext.CanonicalizeRawInts(false), jsontext.CanonicalizeRawFloats(false)); err != nil {
			return fail(err.Error())
		}
		return v, nil

	case Bytea:
		b, err := hex.DecodeString(strings.TrimPrefix(s, `\x`))
		if err != nil {
			return fail("invalid hex format")
		}
		return b, nil
	}

	return fail("unsupported type")
}

// Encode converts a value coming from a client (typically decoded JSON) into
// its canonical stored text. Strings are parsed with Decode first so they are
// validated and normalized too.
func Encode(t Type, v any) (string, error) {

	// numeric and jsonb keep raw values as they are
	if raw, ok := v.(jsontext.Value); ok && t != Numeric && t != JSONB {
		return encodeRaw(t, raw)
	}

	if s, ok := v.(string); ok && t != Text {
		decoded, err := Decode(t, s)
		if err != nil {
			return "", err
		}
		v = decoded
	}

	fail := func(reason string) (string, error) {
		return "", &ConversionError{Value: fmt.Sprint(v), Type: t, Reason: reason}
	}

	switch t {
	case Text:
		switch v := v.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		}
		return fmt.Sprint(v), nil

	case Integer, BigInt:
		bits := 64
		if t == Integer {
			bits = 32
		}
		var n int64
		switch v := v.(type) {
		case int32:
			n = int64(v)
		case int64:
			n = v
		case int:
			n = int64(v)
		case float64:
			if v != math.Trunc(v) {
				return fail("not an integer")
			}
			if math.Abs(v) >= maxExactFloat {
				return fail("not exactly representable")
			}
			n = int64(v)
		default:
			return fail("not an integer")
		}
		if bits == 32 && (n < -1<<31 || n > 1<<31-1) {
			return fail("out of range")
		}
		return strconv.FormatInt(n, 10), nil

	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return fail("not a boolean")
		}
		if b {
			return "t", nil
		}
		return "f", nil

	case Numeric:
		switch v := v.(type) {
		case jsontext.Value:
			if r := gjson.ParseBytes(v); !gjson.ValidBytes(v) || r.Type != gjson.Number {
				return fail("not a number")
			}
			return string(v), nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		case int32:
			return strconv.FormatInt(int64(v), 10), nil
		case int:
			return strconv.Itoa(v), nil
		}
		return fail("not a number")

	case Timestamp, TimestampTZ, Date:
		ts, ok := v.(time.Time)
		if !ok {
			return fail("not a time")
		}
		switch t {
		case Timestamp:
			return ts.Format(timestampFormat), nil
		case TimestampTZ:
			return ts.Format(timestamptzFormat), nil
		}
		return ts.Format(dateFormat), nil

	case JSONB:
		if raw, ok := v.(jsontext.Value); ok {
			decoded, err := Decode(JSONB, string(raw))
			if err != nil {
				return "", err
			}
			return string(decoded.(jsontext.Value)), nil
		}
		b, err := json.Marshal(v, json.Deterministic(true))
		if err != nil {
			return fail(err.Error())
		}
		return string(b), nil

	case Bytea:
		b, ok := v.([]byte)
		if !ok {
			return fail("not bytes")
		}
		return `\x` + hex.EncodeToString(b), nil
	}

	return fail("unsupported type")
}

// Integers at or above 2^53 do not survive a float64.
const maxExactFloat = 1 << 53

// encodeRaw converts a JSON value as the client wrote it. Numbers are parsed
// from their text and never pass through float64.
func encodeRaw(t Type, raw jsontext.Value) (string, error) {

	fail := func(reason string) (string, error) {
		return "", &ConversionError{Value: string(raw), Type: t, Reason: reason}
	}

	kind := raw.Kind()
	if kind == '"' {
		s := ""
		if err := json.Unmarshal(raw, &s); err != nil {
			return fail(err.Error())
		}
		return Encode(t, s)
	}

	switch t {
	case Text:
		return string(raw), nil

	case Integer, BigInt:
		if kind != '0' {
			return fail("not an integer")
		}
		bits := 64
		if t == Integer {
			bits = 32
		}
		n, err := strconv.ParseInt(string(raw), 10, bits)
		if errors.Is(err, strconv.ErrRange) {
			return fail("out of range")
		}
		if err != nil {
			// 1e3 or 7.0
			f, err := strconv.ParseFloat(string(raw), 64)
			if err != nil || f != math.Trunc(f) {
				return fail("not an integer")
			}
			if math.Abs(f) >= maxExactFloat {
				return fail("not exactly representable")
			}
			if bits == 32 && (f < -1<<31 || f > 1<<31-1) {
				return fail("out of range")
			}
			n = int64(f)
		}
		return strconv.FormatInt(n, 10), nil

	case Boolean:
		switch kind {
		case 't':
			return "t", nil
		case 'f':
			return "f", nil
		}
		return fail("not a boolean")
	}

	return fail("unexpected json value")
}
