package temporal

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// DomainTimeline separates timeline fingerprints from any other hash
// computed over the same bytes. The version suffix allows migrating the
// encoding later.
const DomainTimeline = "lextri/timeline/v1"

// Fingerprint computes the content-addressed identifier of a timeline.
//
// The identifier covers the name and every point (ID, the three clocks as
// UTC instants, payload). Points are encoded in the order Detect visits
// them, ascending valid time with ties in insertion order, so equal
// fingerprints always mean equal detector input. Strings are NFC normalized and object keys are
// sorted by UTF-16 code units, so equivalent timelines from different
// producers hash identically.
func Fingerprint(tl *Timeline) (string, error) {
	points := tl.SortedByValidTime()

	encoded := make([]any, len(points))
	for i, p := range points {
		var dt any
		if p.DecisionTime != nil {
			dt = FormatTimestamp(p.DecisionTime.UTC())
		}
		data := map[string]any{}
		for k, v := range p.Data {
			data[k] = v
		}
		encoded[i] = map[string]any{
			"event_id":         p.ID,
			"valid_time":       FormatTimestamp(p.ValidTime.UTC()),
			"transaction_time": FormatTimestamp(p.TransactionTime.UTC()),
			"decision_time":    dt,
			"data":             data,
		}
	}

	canonical, err := marshalCanonical(map[string]any{
		"name":   tl.Name,
		"points": encoded,
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint timeline: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainTimeline))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the payload is known to be JSON-compatible.
func MustFingerprint(tl *Timeline) string {
	id, err := Fingerprint(tl)
	if err != nil {
		panic(err)
	}
	return id
}

// marshalCanonical writes v as canonical JSON: sorted keys, no HTML
// escaping, NFC strings, shortest round-trip numbers.
func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case string:
		return marshalCanonicalString(val)
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case int:
		return []byte(strconv.FormatInt(int64(val), 10)), nil
	case int64:
		return []byte(strconv.FormatInt(val, 10)), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("non-finite number %v", val)
		}
		return []byte(strconv.FormatFloat(val, 'g', -1, 64)), nil
	case json.Number:
		return []byte(val.String()), nil
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalCanonical(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareUTF16)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := marshalCanonicalString(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := marshalCanonical(val[k])
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		// Arbitrary payload types go through encoding/json first so they
		// reduce to the generic shapes above.
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("unsupported payload type %T: %w", v, err)
		}
		var generic any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&generic); err != nil {
			return nil, err
		}
		return marshalCanonical(generic)
	}
}

func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// compareUTF16 orders strings by UTF-16 code units.
func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}
