package dom_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/dom"
	"github.com/xkilldash9x/boxlens/internal/dom/domtest"
)

func buildPage() (*dom.Snapshot, map[string]int) {
	b := domtest.New(schemas.Viewport{Width: 800, Height: 600, ScrollY: 100})
	keys := map[string]int{}
	keys["main"] = b.Add(dom.RootParent, "main", domtest.Rect(0, 0, 800, 600), "display", "flex")
	keys["a"] = b.Add(keys["main"], "div", domtest.Rect(0, 0, 100, 100))
	keys["b"] = b.Add(keys["main"], "div", domtest.Rect(120, 0, 100, 100))
	keys["inner"] = b.Add(keys["b"], "span", domtest.Rect(130, 10, 20, 20))
	keys["ui"] = b.AddNode(dom.Node{Parent: dom.RootParent, Tag: "div", ID: "bl-layer-sweep", Rect: domtest.Rect(0, 0, 800, 600)})
	keys["uichild"] = b.AddNode(dom.Node{Parent: keys["ui"], Tag: "div", Rect: domtest.Rect(0, 0, 10, 10)})
	keys["gone"] = b.Detached(keys["main"], "p")
	return b.Snapshot(), keys
}

func TestSnapshotStructure(t *testing.T) {
	snap, keys := buildPage()

	assert.Len(t, snap.Elements(), 7)
	assert.Equal(t, 100.0, snap.Viewport().ScrollY)

	main, ok := snap.Lookup(keys["main"])
	require.True(t, ok)
	children := main.Children()
	require.Len(t, children, 3)
	assert.Equal(t, keys["a"], children[0].Key())
	assert.Equal(t, keys["b"], children[1].Key())
	assert.Equal(t, keys["gone"], children[2].Key())

	_, ok = snap.Lookup(9999)
	assert.False(t, ok)
}

func TestSnapshotInspectorUI(t *testing.T) {
	snap, keys := buildPage()

	ui, _ := snap.Lookup(keys["ui"])
	assert.True(t, ui.IsInspectorUI())
	child, _ := snap.Lookup(keys["uichild"])
	assert.True(t, child.IsInspectorUI(), "descendants of inspector nodes are inspector UI")
	main, _ := snap.Lookup(keys["main"])
	assert.False(t, main.IsInspectorUI())
}

func TestSnapshotDetachedReads(t *testing.T) {
	snap, keys := buildPage()
	gone, _ := snap.Lookup(keys["gone"])

	_, err := gone.Rect()
	assert.True(t, errors.Is(err, dom.ErrDetached))
	_, err = gone.Style()
	assert.True(t, errors.Is(err, dom.ErrDetached))
}

func TestSnapshotElementAt(t *testing.T) {
	t.Run("deepest match in document order", func(t *testing.T) {
		snap, keys := buildPage()
		el, ok := snap.ElementAt(135, 15)
		require.True(t, ok)
		assert.Equal(t, keys["inner"], el.Key())
	})

	t.Run("inspector UI is transparent", func(t *testing.T) {
		snap, keys := buildPage()
		el, ok := snap.ElementAt(5, 5)
		require.True(t, ok)
		assert.Equal(t, keys["a"], el.Key())
	})

	t.Run("captured hit test wins for its own point", func(t *testing.T) {
		snap, keys := buildPage()
		hit := keys["main"]
		snap.Pointer = &schemas.Point{X: 135, Y: 15}
		snap.HitKey = &hit
		el, ok := snap.ElementAt(135, 15)
		require.True(t, ok)
		assert.Equal(t, keys["main"], el.Key())
	})

	t.Run("miss", func(t *testing.T) {
		snap, _ := buildPage()
		_, ok := snap.ElementAt(900, 900)
		assert.False(t, ok)
	})
}

func TestSnapshotSaveLoad(t *testing.T) {
	snap, keys := buildPage()
	snap.URL = "https://example.test/"
	path := filepath.Join(t.TempDir(), "nested", "capture.json")

	require.NoError(t, snap.Save(path))
	loaded, err := dom.LoadSnapshot(path)
	require.NoError(t, err)

	assert.Equal(t, snap.URL, loaded.URL)
	assert.Equal(t, snap.View, loaded.View)
	require.Len(t, loaded.Elements(), len(snap.Nodes))
	main, ok := loaded.Lookup(keys["main"])
	require.True(t, ok)
	st, err := main.Style()
	require.NoError(t, err)
	assert.Equal(t, "flex", st.Display())

	_, err = dom.LoadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	_, err = dom.DecodeSnapshot([]byte("{not json"))
	assert.Error(t, err)
}
