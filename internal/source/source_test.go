package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_LookupNormalizesID(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	src := &fakeSource{}
	require.NoError(t, reg.Register("UniCam", "Università di Camerino", src))

	tests := []struct {
		name string
		id   string
		ok   bool
	}{
		{name: "exact", id: "unicam", ok: true},
		{name: "upper case", id: "UNICAM", ok: true},
		{name: "padded", id: "  unicam\t", ok: true},
		{name: "unknown", id: "unibo", ok: false},
		{name: "empty", id: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := reg.Lookup(tt.id)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Same(t, src, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestRegistry_RegisterRejectsDuplicatesAndEmpty(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register("unicam", "UNICAM", &fakeSource{}))

	assert.Error(t, reg.Register(" UNICAM ", "again", &fakeSource{}))
	assert.ErrorIs(t, reg.Register("  ", "blank", &fakeSource{}), ErrInvalidID)
	assert.Error(t, reg.Register("other", "nil", nil))
}

func TestRegistry_IDsAndNames(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register("zeta", "Zeta", &fakeSource{}))
	require.NoError(t, reg.Register("Alpha", "Alpha University", &fakeSource{}))

	assert.Equal(t, []string{"alpha", "zeta"}, reg.IDs())
	assert.Equal(t, map[string]string{"alpha": "Alpha University", "zeta": "Zeta"}, reg.Names())
}
