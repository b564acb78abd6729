package cache

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFingerprint_KeyOrderIndependent(t *testing.T) {
	a, err := Fingerprint(json.RawMessage(`{"b":1,"a":{"y":[3,1],"x":"<&>"}}`))
	require.NoError(t, err)
	b, err := Fingerprint(map[string]any{"a": map[string]any{"x": "<&>", "y": []int{3, 1}}, "b": 1})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.Equal(t, strings.ToLower(a), a)
}

func TestFingerprint_ArrayOrderMatters(t *testing.T) {
	a, err := Fingerprint([]string{"evaluative", "technical"})
	require.NoError(t, err)
	b, err := Fingerprint([]string{"technical", "evaluative"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCanonicalJSON(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{"z": 1.5, "a": "<b>", "m": []any{true, nil}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<b>","m":[true,null],"z":1.5}`, string(got))
}

func TestFingerprint_Unmarshalable(t *testing.T) {
	_, err := Fingerprint(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

// 同一组键值以任意插入顺序构造，指纹相同
func TestProperty_Fingerprint_Idempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := rapid.MapOfN(
			rapid.StringMatching(`[a-z_]{1,8}`),
			rapid.OneOf(
				rapid.Map(rapid.Int(), func(i int) any { return i }),
				rapid.Map(rapid.String(), func(s string) any { return s }),
				rapid.Map(rapid.Bool(), func(b bool) any { return b }),
			),
			0, 10,
		).Draw(rt, "m")

		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		perm := rapid.Permutation(keys).Draw(rt, "order")

		// 按打乱后的顺序手写 JSON
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range perm {
			if i > 0 {
				b.WriteByte(',')
			}
			kv, _ := json.Marshal(k)
			vv, _ := json.Marshal(m[k])
			fmt.Fprintf(&b, "%s:%s", kv, vv)
		}
		b.WriteByte('}')

		f1, err := Fingerprint(m)
		require.NoError(rt, err)
		f2, err := Fingerprint(json.RawMessage(b.String()))
		require.NoError(rt, err)
		f3, err := Fingerprint(m)
		require.NoError(rt, err)

		assert.Equal(rt, f1, f2)
		assert.Equal(rt, f1, f3)
	})
}
