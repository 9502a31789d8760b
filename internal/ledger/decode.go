package ledger

import (
	"encoding/json"
	"strings"

	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

// DecodedFields holds a record payload decoded by field name. The ledger
// serializes payloads as a JSON array of {name, value:{value}} entries; this
// is the typed boundary so nothing past this package touches untyped data.
type DecodedFields map[string]json.RawMessage

// rawField mirrors one entry of the serialized payload array.
type rawField struct {
	Name  string `json:"name"`
	Value struct {
		Value json.RawMessage `json:"value"`
	} `json:"value"`
}

// DecodeFields parses the payload array. Later duplicates of a field name
// win; unknown fields are kept so callers can decode schema extensions.
func DecodeFields(payload string) (DecodedFields, error) {
	if strings.TrimSpace(payload) == "" {
		return DecodedFields{}, nil
	}
	var raw []rawField
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, errors.LedgerError("malformed record payload").
			WithCause(err).
			Build()
	}
	fields := make(DecodedFields, len(raw))
	for _, f := range raw {
		fields[f.Name] = f.Value.Value
	}
	return fields, nil
}

// String returns the named field as a string, or "".
func (d DecodedFields) String(name string) string {
	raw, ok := d[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// StringSlice returns the named field as a string slice. Both a JSON array
// and a comma-separated string are accepted; registrations have used both
// encodings.
func (d DecodedFields) StringSlice(name string) []string {
	raw, ok := d[name]
	if !ok {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return trimNonEmpty(list)
	}

	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return trimNonEmpty(strings.Split(joined, ","))
	}
	return nil
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
