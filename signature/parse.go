package signature

import "encoding/json"

// ParseResponse projects raw assistant content onto sig's output fields. Per
// §4.1: the content is treated as JSON; if it parses as an object, its keys
// are projected onto output fields (both symbol- and string-keyed entries are
// accepted, so this engine normalizes every key to its string form at the
// parse boundary per §9). Ok is true iff the parsed value is a JSON object
// and every required output field is present. Missing optional fields
// resolve to nil. Parse failures never raise; they yield an empty outputs
// map and ok=false, and raw is left for the caller to keep.
func ParseResponse(sig Signature, raw string) (ok bool, outputs map[string]any) {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return false, map[string]any{}
	}
	obj, isObject := parsed.(map[string]any)
	if !isObject {
		return false, map[string]any{}
	}

	outputs = make(map[string]any, len(sig.Outputs))
	for _, f := range sig.Outputs {
		if v, present := obj[f.Name]; present {
			outputs[f.Name] = v
			continue
		}
		outputs[f.Name] = nil
	}

	for _, f := range sig.RequiredOutputs() {
		if _, present := obj[f.Name]; !present {
			return false, outputs
		}
	}
	return true, outputs
}
