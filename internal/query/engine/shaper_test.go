package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeList(t *testing.T) {
	type ref struct {
		Name     string `json:"name"`
		CcnOrNpi string `json:"ccn_or_npi"`
	}

	t.Run("decodes object arrays", func(t *testing.T) {
		v := RelValue{Raw: []byte(`[{"name":"Acme Staffing","ccn_or_npi":"99"}]`)}
		out := DecodeList[ref](v)
		assert.Equal(t, []ref{{Name: "Acme Staffing", CcnOrNpi: "99"}}, out)
	})

	t.Run("sql null becomes empty slice", func(t *testing.T) {
		assert.Empty(t, DecodeList[ref](RelValue{}))
	})

	t.Run("json null becomes empty slice", func(t *testing.T) {
		out := DecodeList[ref](RelValue{Raw: []byte(`null`)})
		assert.NotNil(t, out)
		assert.Empty(t, out)
	})

	t.Run("malformed payload becomes empty slice", func(t *testing.T) {
		out := DecodeList[ref](RelValue{Raw: []byte(`{broken`)})
		assert.NotNil(t, out)
		assert.Empty(t, out)
	})
}

func TestStrings_DropsBlankMembers(t *testing.T) {
	v := RelValue{Raw: []byte(`["Nurse","","Physician"]`)}
	assert.Equal(t, []string{"Nurse", "Physician"}, Strings(v))
}

func TestTitleStrings(t *testing.T) {
	v := RelValue{Raw: []byte(`["springfield","SHELBYVILLE"]`)}
	assert.Equal(t, []string{"Springfield", "Shelbyville"}, TitleStrings(v))
}
