// Package jsondoc stores schema-less JSON (rubrics, quiz payloads, gradebook tables)
// without interpreting it. A Document keeps the exact bytes it was given so that a
// save followed by a read returns them unchanged; Decode turns them into a Value
// tree when the server does need to look inside.
package jsondoc

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

var nullLiteral = []byte("null")

// ErrInvalid is returned when bytes handed to a Document are not a single JSON value.
var ErrInvalid = errors.New("jsondoc: invalid JSON")

// Document is an opaque JSON value. The zero value is JSON null.
type Document struct {
	raw []byte
}

// Null returns the null document.
func Null() Document { return Document{} }

// Parse wraps raw after checking that it is valid JSON. The bytes are copied.
func Parse(raw []byte) (Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Document{}, nil
	}
	if !json.Valid(trimmed) {
		return Document{}, ErrInvalid
	}
	return Document{raw: append([]byte(nil), trimmed...)}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(raw string) Document {
	d, err := Parse([]byte(raw))
	if err != nil {
		panic(err)
	}
	return d
}

// From encodes v as a Document.
func From(v interface{}) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("jsondoc: encode: %w", err)
	}
	return Document{raw: raw}, nil
}

// StringOrJSON parses s as JSON and falls back to storing it as a JSON string.
// Form fields that may carry either an encoded object or free text go through here.
func StringOrJSON(s string) Document {
	if d, err := Parse([]byte(s)); err == nil && !d.IsNull() {
		return d
	}
	if len(bytes.TrimSpace([]byte(s))) == 0 {
		return Document{}
	}
	raw, _ := json.Marshal(s)
	return Document{raw: raw}
}

// IsNull reports whether the document holds JSON null.
func (d Document) IsNull() bool {
	return len(d.raw) == 0 || bytes.Equal(d.raw, nullLiteral)
}

// Bytes returns the stored bytes, "null" for the zero value.
func (d Document) Bytes() []byte {
	if len(d.raw) == 0 {
		return nullLiteral
	}
	return d.raw
}

// Decode parses the document into a Value tree.
func (d Document) Decode() (Value, error) {
	return decodeValue(d.Bytes())
}

// Unmarshal decodes the document into dst using encoding/json rules.
func (d Document) Unmarshal(dst interface{}) error {
	return json.Unmarshal(d.Bytes(), dst)
}

// Equal compares the stored bytes.
func (d Document) Equal(other Document) bool {
	return bytes.Equal(d.Bytes(), other.Bytes())
}

// MarshalJSON emits the stored bytes verbatim.
func (d Document) MarshalJSON() ([]byte, error) {
	return d.Bytes(), nil
}

// UnmarshalJSON keeps a copy of the incoming bytes.
func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer. Null documents are stored as SQL NULL.
func (d Document) Value() (driver.Value, error) {
	if d.IsNull() {
		return nil, nil
	}
	return string(d.raw), nil
}

// Scan implements sql.Scanner for json/jsonb/text columns.
func (d *Document) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Document{}
		return nil
	case []byte:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		return d.Scan([]byte(v))
	default:
		return fmt.Errorf("jsondoc: cannot scan %T", src)
	}
}
