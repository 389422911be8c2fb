package engine

import (
	"encoding/json"

	"github.com/caremap/caredirectory/backend/pkg/utils"
)

// DecodeList decodes a JSON-aggregated relation into a typed slice.
// SQL NULL, the JSON null produced by an empty aggregate, and malformed
// payloads all canonicalize to an empty slice so response shapes stay
// stable.
func DecodeList[T any](v RelValue) []T {
	if len(v.Raw) == 0 {
		return []T{}
	}
	var out []T
	if err := json.Unmarshal(v.Raw, &out); err != nil || out == nil {
		return []T{}
	}
	return out
}

// Strings decodes a JSON string array, dropping blank members
func Strings(v RelValue) []string {
	decoded := DecodeList[string](v)
	out := make([]string, 0, len(decoded))
	for _, s := range decoded {
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// TitleStrings decodes like Strings and title-cases every member
func TitleStrings(v RelValue) []string {
	return utils.TitleCaseAll(Strings(v))
}
