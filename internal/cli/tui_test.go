package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/stub"
)

func browseDB() *index.Database {
	return index.FromFiles(&stub.File{Path: "core.rb", Modules: []*stub.Module{
		{Name: "Object", Kind: stub.KindClass},
		{Name: "Comparable", Kind: stub.KindModule, Methods: []stub.Method{{Name: "between?"}}},
		{Name: "Integer", Kind: stub.KindClass, Includes: []string{"Comparable"}, Methods: []stub.Method{
			{Name: "times"},
			{Name: "sqrt", Singleton: true},
		}},
	}})
}

func press(t *testing.T, m BrowseModel, keys ...tea.KeyMsg) BrowseModel {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(BrowseModel)
	}
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestBrowseNavigation(t *testing.T) {
	m := NewBrowseModel(browseDB())
	require.Len(t, m.Modules, 3)

	m = press(t, m, runes("j"), runes("j"), runes("j"))
	assert.Equal(t, 2, m.Cursor, "cursor stops at the last module")
	m = press(t, m, runes("k"))
	assert.Equal(t, 1, m.Cursor)
	assert.Contains(t, m.View(), "[2/3]")
}

func TestBrowseFilter(t *testing.T) {
	m := NewBrowseModel(browseDB())

	m = press(t, m, runes("/"), runes("int"))
	assert.True(t, m.Filtering)
	require.Len(t, m.Modules, 1)
	assert.Equal(t, "Integer", m.Modules[0].Name)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Len(t, m.Modules, 3)

	m = press(t, m, runes("zzz"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.Filtering)
	assert.Empty(t, m.Modules)
	assert.Contains(t, m.View(), "[0/0]")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, m.Detail)
}

func TestBrowseDetail(t *testing.T) {
	m := NewBrowseModel(browseDB())
	m = press(t, m, runes("/"), runes("Integer"), tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, m.Detail)
	require.NoError(t, m.Err)
	assert.Equal(t, "Integer", m.Detail.Module)

	var keys []string
	for _, r := range m.Detail.Methods {
		keys = append(keys, r.Key)
	}
	assert.Contains(t, keys, "Integer#times")
	assert.Contains(t, keys, "Comparable#between?")
	assert.Contains(t, m.View(), "def times")

	m = press(t, m, runes("s"))
	assert.True(t, m.Singleton)
	keys = nil
	for _, r := range m.Detail.Methods {
		keys = append(keys, r.Key)
	}
	assert.Contains(t, keys, "Integer.sqrt")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.Detail)
	assert.Equal(t, "Integer", m.Modules[m.Cursor].Name)
}
