package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue_PreservesOrderAndNumbers(t *testing.T) {
	raw := `{"z":1,"a":1.50,"m":{"y":"<b>","b":[1,2]}}`
	v, err := ParseValue(raw)
	require.NoError(t, err)

	assert.Equal(t, KindObject, v.Kind)
	require.Len(t, v.Members, 3)
	assert.Equal(t, "z", v.Members[0].Key)
	assert.Equal(t, "a", v.Members[1].Key)
	assert.Equal(t, "1.50", v.Members[1].Value.Number)

	out, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, raw, string(out))
}

func TestParseValue_Invalid(t *testing.T) {
	_, err := ParseValue(`{"a":`)
	assert.Error(t, err)
}

func TestIsStructured(t *testing.T) {
	assert.True(t, IsStructured(`{"k":1}`))
	assert.True(t, IsStructured(`  [1, 2]`))
	assert.False(t, IsStructured(`"string"`))
	assert.False(t, IsStructured(`42`))
	assert.False(t, IsStructured(`{"id": {{id}}}`))
	assert.False(t, IsStructured(``))
}

func TestStrings(t *testing.T) {
	v, err := ParseValue(`["a",{"k":"b","n":1},["c"]]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, Strings(v))
}
