package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// PayloadVersion is the schema version embedded in every encoded payload.
const PayloadVersion = 1

// Payload is an opaque, canonically encoded old/new values blob. A nil
// Payload is stored as NULL.
type Payload []byte

// EncodePayload wraps v in a versioned envelope and serialises it as
// canonical JSON: object keys sorted, no insignificant whitespace, numbers
// kept verbatim.
func EncodePayload(v any) (Payload, error) {
	if v == nil {
		return nil, nil
	}
	out, err := canonicalJSON(map[string]any{"v": PayloadVersion, "data": v})
	if err != nil {
		return nil, err
	}
	return Payload(out), nil
}

// MustPayload is EncodePayload for values known to be serialisable.
func MustPayload(v any) Payload {
	p, err := EncodePayload(v)
	if err != nil {
		panic(err)
	}
	return p
}

// IsNull reports whether the payload represents NULL.
func (p Payload) IsNull() bool {
	return p == nil
}

// MarshalJSON embeds the payload verbatim.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.IsNull() {
		return []byte("null"), nil
	}
	return []byte(p), nil
}

// UnmarshalJSON keeps the raw bytes of an embedded payload.
func (p *Payload) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = nil
		return nil
	}
	*p = append((*p)[:0], data...)
	return nil
}

func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ledger: canonical marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("ledger: canonical unmarshal: %w", err)
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case json.Number:
		buf.WriteString(val.String())
	default:
		return writeScalar(buf, val)
	}
	return nil
}

func writeScalar(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encoder terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
