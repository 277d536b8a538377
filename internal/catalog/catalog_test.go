package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	ids := make([]string, 0)
	for _, e := range c.List(nil) {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"MOMENTUM", "MACD", "RSI", "PE_RANK", "QUALITY", "FLOW"}, ids)

	_, ok := c.Get("NOOP")
	assert.True(t, ok, "test entries stay resolvable")
	assert.Equal(t, "밸류에이션", c.Name("PE_RANK"))
	assert.Equal(t, "UNKNOWN", c.Name("UNKNOWN"))

	all := c.Entries()
	require.Len(t, all, 7)
	assert.Equal(t, "NOOP", all[6].ID)
	assert.True(t, all[6].Hidden())
}

func TestList_Available(t *testing.T) {
	c := Default()

	list := c.List(func(id string) bool { return id == "MACD" || id == "RSI" })
	require.Len(t, list, 2)
	assert.Equal(t, "MACD", list[0].ID)
	assert.Equal(t, "RSI", list[1].ID)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
		wantLen int
	}{
		{
			name:    "valid",
			doc:     "analyzers:\n  - id: A\n    name: Alpha\n  - id: B\n",
			wantLen: 2,
		},
		{
			name:    "empty document",
			doc:     "",
			wantLen: 0,
		},
		{
			name:    "unknown field",
			doc:     "analyzers:\n  - id: A\n    colour: red\n",
			wantErr: "decode catalog",
		},
		{
			name:    "duplicate id",
			doc:     "analyzers:\n  - id: A\n  - id: A\n",
			wantErr: "duplicate id",
		},
		{
			name:    "empty id",
			doc:     "analyzers:\n  - name: nameless\n",
			wantErr: "empty id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(strings.NewReader(tt.doc))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, c.NameDict(), tt.wantLen)
		})
	}
}

func TestParse_NameDefaultsToID(t *testing.T) {
	c, err := Parse(strings.NewReader("analyzers:\n  - id: B\n"))
	require.NoError(t, err)
	assert.Equal(t, "B", c.Name("B"))
}

func TestHidden(t *testing.T) {
	assert.True(t, Entry{ID: "X", Test: true}.Hidden())
	assert.True(t, Entry{ID: "X", Name: "테스트 전략"}.Hidden())
	assert.False(t, Entry{ID: "X", Name: "모멘텀"}.Hidden())
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, c.List(nil))

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analyzers:\n  - id: ONLY\n    name: Only\n"), 0o644))

	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ONLY": "Only"}, c.NameDict())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
