package shape

import (
	"fmt"
	"image/color"
	"slices"

	"gioui.org/f32"
	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v2"

	"git.sr.ht/~whereswaldon/chartview/errkind"
	"git.sr.ht/~whereswaldon/chartview/geom"
)

// Tree is an immutable shape tree with an index from CID to shape.
// Shapes without a CID are drawn but cannot be looked up.
type Tree struct {
	root  *Shape
	index map[CID]*Shape
	order []CID
}

// NewTree indexes root. CIDs must be unique within the tree.
func NewTree(root *Shape) (*Tree, error) {
	t := &Tree{root: root, index: make(map[CID]*Shape)}
	var err error
	t.Walk(func(s *Shape, _ int) bool {
		if s.CID == "" {
			return true
		}
		if _, dup := t.index[s.CID]; dup {
			err = fmt.Errorf("duplicate shape identifier %s", s.CID)
			return false
		}
		t.index[s.CID] = s
		t.order = append(t.order, s.CID)
		return true
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Root returns the root shape, which may be nil for an empty tree.
func (t *Tree) Root() *Shape { return t.root }

// Len returns the number of identified shapes.
func (t *Tree) Len() int { return len(t.order) }

// Lookup returns the shape with the given CID, failing with NotFound.
func (t *Tree) Lookup(cid CID) (*Shape, error) {
	s, ok := t.index[cid]
	if !ok {
		return nil, errkind.NotFound.New(string(cid))
	}
	return s, nil
}

// CIDs returns every identifier in depth-first paint order.
func (t *Tree) CIDs() []CID { return slices.Clone(t.order) }

// Walk visits shapes depth-first in paint order. Returning false from fn
// stops the walk.
func (t *Tree) Walk(fn func(s *Shape, depth int) bool) {
	if t.root != nil {
		walk(t.root, 0, fn)
	}
}

func walk(s *Shape, depth int, fn func(*Shape, int) bool) bool {
	if !fn(s, depth) {
		return false
	}
	for _, c := range s.Children {
		if !walk(c, depth+1, fn) {
			return false
		}
	}
	return true
}

// Bounds returns the bounds of the shape with the given CID. With snap
// set the result is the union of the shape and all its descendants.
func (t *Tree) Bounds(cid CID, snap bool) (geom.Rect, error) {
	s, err := t.Lookup(cid)
	if err != nil {
		return geom.Rect{}, err
	}
	if !snap {
		return s.Bounds, nil
	}
	r := s.Bounds
	walk(s, 0, func(c *Shape, _ int) bool {
		r = r.Union(c.Bounds)
		return true
	})
	return r, nil
}

// HitTest returns the topmost identified shape under p. A shape without a
// CID reports the nearest identified ancestor.
func (t *Tree) HitTest(p f32.Point) (*Shape, bool) {
	var hit *Shape
	var stack []*Shape
	t.Walk(func(s *Shape, depth int) bool {
		stack = append(stack[:depth], s)
		if !s.Contains(p) {
			return true
		}
		for i := depth; i >= 0; i-- {
			if stack[i].CID != "" {
				hit = stack[i]
				break
			}
		}
		return true
	})
	return hit, hit != nil
}

// Replace returns a new tree in which the shape identified by cid is
// replaced by sub. Shapes off the path from the root are shared with t.
func (t *Tree) Replace(cid CID, sub *Shape) (*Tree, error) {
	if sub == nil {
		return nil, errkind.InvalidShape.New(cid, "nil replacement")
	}
	if _, err := t.Lookup(cid); err != nil {
		return nil, err
	}
	root, _ := replace(t.root, cid, sub)
	return NewTree(root)
}

func replace(s *Shape, cid CID, sub *Shape) (*Shape, bool) {
	if s.CID == cid {
		return sub, true
	}
	for i, c := range s.Children {
		if nc, ok := replace(c, cid, sub); ok {
			cp := *s
			cp.Children = slices.Clone(s.Children)
			cp.Children[i] = nc
			cp.Bounds = geom.Rect{}
			if cp.Kind != Group {
				cp.Bounds = s.Bounds
			}
			for _, ch := range cp.Children {
				cp.Bounds = cp.Bounds.Union(ch.Bounds)
			}
			return &cp, true
		}
	}
	return nil, false
}

type dumpNode struct {
	CID      string      `yaml:"cid,omitempty"`
	Kind     string      `yaml:"kind"`
	Bounds   []float32   `yaml:"bounds,flow"`
	Text     string      `yaml:"text,omitempty"`
	FontSize float32     `yaml:"fontSize,omitempty"`
	Rotation float32     `yaml:"rotation,omitempty"`
	Points   [][]float32 `yaml:"points,omitempty,flow"`
	Fill     string      `yaml:"fill,omitempty"`
	Stroke   string      `yaml:"stroke,omitempty"`
	Sector   []float32   `yaml:"sector,omitempty,flow"`
	Effect   *Effect     `yaml:"effect,omitempty"`
	Children []dumpNode  `yaml:"children,omitempty"`
}

func hex(c color.NRGBA) string {
	if c == (color.NRGBA{}) {
		return ""
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func toDump(s *Shape) dumpNode {
	n := dumpNode{
		CID:      string(s.CID),
		Kind:     s.Kind.String(),
		Bounds:   []float32{s.Bounds.Min.X, s.Bounds.Min.Y, s.Bounds.Dx(), s.Bounds.Dy()},
		Text:     s.Text,
		FontSize: s.FontSize,
		Rotation: s.Rotation,
		Fill:     hex(s.Fill),
		Stroke:   hex(s.Stroke),
	}
	for _, p := range s.Points {
		n.Points = append(n.Points, []float32{p.X, p.Y})
	}
	if s.Kind == Sector {
		n.Sector = []float32{s.Center.X, s.Center.Y, s.Radius, s.InnerRadius, s.StartAngle, s.Sweep}
	}
	if s.Effect != (Effect{}) {
		e := s.Effect
		n.Effect = &e
	}
	for _, c := range s.Children {
		n.Children = append(n.Children, toDump(c))
	}
	return n
}

// Dump renders the tree as YAML with stable field names. The output is
// deterministic for a given tree.
func (t *Tree) Dump() (string, error) {
	if t.root == nil {
		return "", nil
	}
	b, err := yaml.Marshal(toDump(t.root))
	if err != nil {
		return "", fmt.Errorf("dumping shape tree: %w", err)
	}
	return string(b), nil
}

// Fingerprint hashes the debug dump of the tree. Equal trees have equal
// fingerprints.
func (t *Tree) Fingerprint() uint64 {
	s, err := t.Dump()
	if err != nil {
		return 0
	}
	return xxhash.Sum64String(s)
}
