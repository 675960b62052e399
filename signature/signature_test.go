package signature

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsDuplicateAndOverlappingFields(t *testing.T) {
	_, err := New("s", []Field{{Name: "a"}, {Name: "a"}}, nil)
	require.Error(t, err)

	_, err = New("s", []Field{{Name: "a"}}, []Field{{Name: "a"}})
	require.Error(t, err)

	_, err = New("s", []Field{{Name: ""}}, nil)
	require.Error(t, err)
}

func TestRequiredOutputsExcludesOptional(t *testing.T) {
	sig, err := New("s", nil, []Field{{Name: "label"}, {Name: "_reasoning", Optional: true}})
	require.NoError(t, err)
	req := sig.RequiredOutputs()
	require.Len(t, req, 1)
	require.Equal(t, "label", req[0].Name)
}

func TestFieldValidateNilValidator(t *testing.T) {
	f := Field{Name: "x"}
	require.Nil(t, f.Validate("anything"))
}

func TestFieldValidateWithValidator(t *testing.T) {
	f := Field{Name: "x", Validator: func(v any) []FieldIssue {
		if v != "ok" {
			return []FieldIssue{{Field: "x", Constraint: "invalid_enum_value"}}
		}
		return nil
	}}
	require.Nil(t, f.Validate("ok"))
	require.Len(t, f.Validate("bad"), 1)
}

func TestFieldJSONRoundTripDropsValidator(t *testing.T) {
	f := Field{Name: "label", Optional: true, Validator: func(any) []FieldIssue { return nil }}
	data, err := json.Marshal(f)
	require.NoError(t, err)

	var out Field
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, "label", out.Name)
	require.True(t, out.Optional)
	require.Nil(t, out.Validator)
}

func TestSignatureOutputField(t *testing.T) {
	sig, err := New("s", nil, []Field{{Name: "label"}})
	require.NoError(t, err)

	f, ok := sig.OutputField("label")
	require.True(t, ok)
	require.Equal(t, "label", f.Name)

	_, ok = sig.OutputField("missing")
	require.False(t, ok)
	require.False(t, sig.HasOutput("missing"))
}
