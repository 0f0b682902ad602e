package projection

import (
	"errors"
	"testing"
	"time"

	"github.com/fulldump/biff"
	"github.com/go-json-experiment/json/jsontext"
)

func TestParseType(t *testing.T) {

	for name, expected := range map[string]Type{
		"":            Text,
		"VARCHAR":     Text,
		"int4":        Integer,
		"int8":        BigInt,
		"Bool":        Boolean,
		"json":        JSONB,
		"timestamptz": TimestampTZ,
	} {
		got, err := ParseType(name)
		biff.AssertNil(err)
		biff.AssertEqual(got, expected)
	}

	_, err := ParseType("geometry")
	biff.AssertNotNil(err)
}

func TestDecode(t *testing.T) {

	biff.Alternative("Decode", func(a *biff.A) {

		a.Alternative("Integer", func(a *biff.A) {
			v, err := Decode(Integer, "42")
			biff.AssertNil(err)
			biff.AssertEqual(v, int32(42))

			_, err = Decode(Integer, "99999999999")
			var convErr *ConversionError
			biff.AssertTrue(errors.As(err, &convErr))
		})

		a.Alternative("Boolean", func(a *biff.A) {
			v, err := Decode(Boolean, "t")
			biff.AssertNil(err)
			biff.AssertEqual(v, true)

			v, err = Decode(Boolean, "OFF")
			biff.AssertNil(err)
			biff.AssertEqual(v, false)
		})

		a.Alternative("Numeric", func(a *biff.A) {
			v, err := Decode(Numeric, "12.50")
			biff.AssertNil(err)
			biff.AssertEqual(v, jsontext.Value("12.50"))

			_, err = Decode(Numeric, "twelve")
			biff.AssertNotNil(err)
		})

		a.Alternative("Timestamp", func(a *biff.A) {
			v, err := Decode(Timestamp, "2024-03-01 10:20:30")
			biff.AssertNil(err)
			biff.AssertEqual(v, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC))
		})

		a.Alternative("JSONB is canonical", func(a *biff.A) {
			v, err := Decode(JSONB, `{ "b": 1, "a": [true] }`)
			biff.AssertNil(err)
			biff.AssertEqual(string(v.(jsontext.Value)), `{"a":[true],"b":1}`)

			v, err = Decode(JSONB, `{"id": 9007199254740993, "x": 0.10}`)
			biff.AssertNil(err)
			biff.AssertEqual(string(v.(jsontext.Value)), `{"id":9007199254740993,"x":0.10}`)

			_, err = Decode(JSONB, `{"a":`)
			biff.AssertNotNil(err)
		})

		a.Alternative("Bytea", func(a *biff.A) {
			v, err := Decode(Bytea, `\x6869`)
			biff.AssertNil(err)
			biff.AssertEqual(v, []byte("hi"))

			v, err = Decode(Bytea, `6869`)
			biff.AssertNil(err)
			biff.AssertEqual(v, []byte("hi"))
		})
	})
}

func TestEncode(t *testing.T) {

	biff.Alternative("Encode", func(a *biff.A) {

		a.Alternative("Boolean uses t/f", func(a *biff.A) {
			s, err := Encode(Boolean, true)
			biff.AssertNil(err)
			biff.AssertEqual(s, "t")

			s, err = Encode(Boolean, "false")
			biff.AssertNil(err)
			biff.AssertEqual(s, "f")
		})

		a.Alternative("Integer from JSON number", func(a *biff.A) {
			s, err := Encode(Integer, float64(7))
			biff.AssertNil(err)
			biff.AssertEqual(s, "7")

			_, err = Encode(Integer, 7.5)
			biff.AssertNotNil(err)

			_, err = Encode(Integer, float64(1<<40))
			biff.AssertNotNil(err)

			s, err = Encode(BigInt, float64(1<<40))
			biff.AssertNil(err)
			biff.AssertEqual(s, "1099511627776")
		})

		a.Alternative("Numbers keep their JSON text", func(a *biff.A) {
			s, err := Encode(BigInt, jsontext.Value("9007199254740993"))
			biff.AssertNil(err)
			biff.AssertEqual(s, "9007199254740993")

			s, err = Encode(Integer, jsontext.Value("1e3"))
			biff.AssertNil(err)
			biff.AssertEqual(s, "1000")

			s, err = Encode(Numeric, jsontext.Value("12345678901234567890.123"))
			biff.AssertNil(err)
			biff.AssertEqual(s, "12345678901234567890.123")

			s, err = Encode(Boolean, jsontext.Value("true"))
			biff.AssertNil(err)
			biff.AssertEqual(s, "t")

			_, err = Encode(BigInt, jsontext.Value("9223372036854775808"))
			biff.AssertNotNil(err)

			_, err = Encode(Integer, jsontext.Value("2147483648"))
			biff.AssertNotNil(err)

			_, err = Encode(BigInt, jsontext.Value("9007199254740993.0"))
			biff.AssertNotNil(err)

			_, err = Encode(BigInt, float64(1<<53))
			biff.AssertNotNil(err)

			_, err = Encode(Numeric, jsontext.Value(`{"a":1}`))
			biff.AssertNotNil(err)
		})

		a.Alternative("JSONB from document", func(a *biff.A) {
			s, err := Encode(JSONB, map[string]any{"b": 1.0, "a": "x"})
			biff.AssertNil(err)
			biff.AssertEqual(s, `{"a":"x","b":1}`)
		})

		a.Alternative("Bytea", func(a *biff.A) {
			s, err := Encode(Bytea, []byte{0xde, 0xad})
			biff.AssertNil(err)
			biff.AssertEqual(s, `\xdead`)
		})

		a.Alternative("Date normalizes", func(a *biff.A) {
			s, err := Encode(Date, "2024-03-01")
			biff.AssertNil(err)
			biff.AssertEqual(s, "2024-03-01")
		})

		a.Alternative("Text passes through", func(a *biff.A) {
			s, err := Encode(Text, "hello")
			biff.AssertNil(err)
			biff.AssertEqual(s, "hello")
		})
	})
}
