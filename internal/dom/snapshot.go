package dom

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/boxlens/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RootParent is the parent key of nodes that are direct children of body.
const RootParent = -1

// Node is one element of a layout capture.
type Node struct {
	Key       int          `json:"key"`
	Parent    int          `json:"parent"`
	Tag       string       `json:"tag"`
	ID        string       `json:"id,omitempty"`
	ClassName string       `json:"className,omitempty"`
	Rect      schemas.Rect `json:"rect"`
	Style     Style        `json:"style,omitempty"`
	// Error is set when the page failed to read this node mid-capture.
	Error string `json:"error,omitempty"`
}

// Snapshot is a Document backed by a single batched layout read. Nodes are
// stored in document order.
type Snapshot struct {
	URL  string           `json:"url,omitempty"`
	View schemas.Viewport `json:"viewport"`
	// Pointer and HitKey record the page's own hit test for the pointer
	// position supplied at capture time.
	Pointer *schemas.Point `json:"pointer,omitempty"`
	HitKey  *int           `json:"hitKey,omitempty"`
	Nodes   []Node         `json:"nodes"`

	// UIPrefix overrides DefaultUIPrefix when non-empty.
	UIPrefix string `json:"-"`

	indexOnce sync.Once
	byKey     map[int]int
	children  map[int][]int
	elements  []Element
}

func (s *Snapshot) prefix() string {
	if s.UIPrefix != "" {
		return s.UIPrefix
	}
	return DefaultUIPrefix
}

func (s *Snapshot) buildIndex() {
	s.indexOnce.Do(func() {
		s.byKey = make(map[int]int, len(s.Nodes))
		s.children = make(map[int][]int)
		s.elements = make([]Element, len(s.Nodes))
		for i, n := range s.Nodes {
			s.byKey[n.Key] = i
			s.children[n.Parent] = append(s.children[n.Parent], i)
			s.elements[i] = &snapshotElement{doc: s, idx: i}
		}
	})
}

// Elements implements Document.
func (s *Snapshot) Elements() []Element {
	s.buildIndex()
	return s.elements
}

// Viewport implements Document.
func (s *Snapshot) Viewport() schemas.Viewport { return s.View }

// Lookup implements Document.
func (s *Snapshot) Lookup(key int) (Element, bool) {
	s.buildIndex()
	i, ok := s.byKey[key]
	if !ok {
		return nil, false
	}
	return s.elements[i], true
}

// ElementAt implements Document. The page's own hit test is used when it was
// captured for this exact point; otherwise the last element in document order
// containing the point wins, which ignores stacking contexts.
func (s *Snapshot) ElementAt(x, y float64) (Element, bool) {
	s.buildIndex()
	if s.Pointer != nil && s.HitKey != nil && s.Pointer.X == x && s.Pointer.Y == y {
		if el, ok := s.Lookup(*s.HitKey); ok && !el.IsInspectorUI() {
			return el, true
		}
	}
	for i := len(s.Nodes) - 1; i >= 0; i-- {
		n := s.Nodes[i]
		if n.Error != "" || (n.Rect.Width == 0 && n.Rect.Height == 0) {
			continue
		}
		if s.elements[i].IsInspectorUI() {
			continue
		}
		if n.Rect.Contains(x, y) {
			return s.elements[i], true
		}
	}
	return nil, false
}

// LoadSnapshot reads a capture written by Save.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	return DecodeSnapshot(data)
}

// DecodeSnapshot parses a JSON capture.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}

// Save writes the capture as indented JSON, creating parent directories.
func (s *Snapshot) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return nil
}

type snapshotElement struct {
	doc *Snapshot
	idx int
}

func (e *snapshotElement) node() *Node { return &e.doc.Nodes[e.idx] }

func (e *snapshotElement) Key() int          { return e.node().Key }
func (e *snapshotElement) Tag() string       { return e.node().Tag }
func (e *snapshotElement) ClassName() string { return e.node().ClassName }

func (e *snapshotElement) Rect() (schemas.Rect, error) {
	n := e.node()
	if n.Error != "" {
		return schemas.Rect{}, fmt.Errorf("%w: %s", ErrDetached, n.Error)
	}
	return n.Rect, nil
}

func (e *snapshotElement) Style() (Style, error) {
	n := e.node()
	if n.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrDetached, n.Error)
	}
	if n.Style == nil {
		return Style{}, nil
	}
	return n.Style, nil
}

func (e *snapshotElement) Children() []Element {
	e.doc.buildIndex()
	idxs := e.doc.children[e.node().Key]
	out := make([]Element, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, e.doc.elements[i])
	}
	return out
}

// IsInspectorUI is true for inspector-owned nodes and anything nested in them.
func (e *snapshotElement) IsInspectorUI() bool {
	e.doc.buildIndex()
	prefix := e.doc.prefix()
	n := e.node()
	for depth := 0; depth <= len(e.doc.Nodes); depth++ {
		if IsInspectorName(prefix, n.ID, n.ClassName) {
			return true
		}
		i, ok := e.doc.byKey[n.Parent]
		if !ok {
			return false
		}
		n = &e.doc.Nodes[i]
	}
	return false
}
