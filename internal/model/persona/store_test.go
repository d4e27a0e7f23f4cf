package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedContainsDefault(t *testing.T) {
	store := NewMemoryStore(Seed())
	p, ok := store.FindByID(DefaultID)
	require.True(t, ok)
	assert.NotEmpty(t, p.Style)
}

func TestFindByIDIsCaseInsensitive(t *testing.T) {
	store := NewMemoryStore(Seed())
	p, ok := store.FindByID(" Teacher ")
	require.True(t, ok)
	assert.Equal(t, "teacher", p.ID)
}

func TestResolveFallsBackToDefault(t *testing.T) {
	store := NewMemoryStore(Seed())
	assert.Equal(t, DefaultID, store.Resolve("bogus").ID)
	assert.Equal(t, "coder", store.Resolve("coder").ID)

	empty := NewMemoryStore(nil)
	assert.Equal(t, DefaultID, empty.Resolve("x").ID)
}

func TestListReturnsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())
	list := store.List()
	list[0].ID = "mutated"
	assert.Equal(t, DefaultID, store.List()[0].ID)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	content := `personas:
  - id: General
    name: ทั่วไป
    style: ตอบสั้น ๆ
  - id: chef
    style: ตอบแบบเชฟ
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	items, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "general", items[0].ID)
	assert.Equal(t, "chef", items[1].Name)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := map[string]string{
		"empty":      `personas: []`,
		"no default": "personas:\n  - id: chef\n    style: x\n",
		"no style":   "personas:\n  - id: general\n",
		"duplicate":  "personas:\n  - id: general\n    style: x\n  - id: GENERAL\n    style: y\n",
		"space id":   "personas:\n  - id: two words\n    style: x\n",
		"not yaml":   "personas: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}
