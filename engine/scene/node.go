package scene

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/tiendc/go-deepcopy"
)

// Node is one element of a scene graph. A node with a non-nil Geometry is a
// mesh; others are pure transform groups.
type Node struct {
	Name string

	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3

	Geometry *Geometry
	Material *Material

	CastShadow    bool
	ReceiveShadow bool

	Children []*Node
}

// NewNode returns an empty group node with an identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

func (n *Node) Add(children ...*Node) {
	n.Children = append(n.Children, children...)
}

func (n *Node) IsMesh() bool {
	return n.Geometry != nil
}

// LocalMatrix composes the node transform as translation · rotation · scale.
func (n *Node) LocalMatrix() mgl64.Mat4 {
	t := mgl64.Translate3D(n.Position.X(), n.Position.Y(), n.Position.Z())
	r := n.Rotation.Normalize().Mat4()
	s := mgl64.Scale3D(n.Scale.X(), n.Scale.Y(), n.Scale.Z())
	return t.Mul4(r).Mul4(s)
}

// Walk visits the subtree rooted at n with an explicit stack, handing each
// node its accumulated world matrix. Returning false from visit stops the
// traversal.
func (n *Node) Walk(visit func(node *Node, world mgl64.Mat4) bool) {
	type frame struct {
		node   *Node
		parent mgl64.Mat4
	}
	stack := []frame{{node: n, parent: mgl64.Ident4()}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		world := f.parent.Mul4(f.node.LocalMatrix())
		if !visit(f.node, world) {
			return
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], parent: world})
		}
	}
}

// FindFirstMesh returns the first mesh node in traversal order, or nil when
// the subtree has none.
func (n *Node) FindFirstMesh() *Node {
	var found *Node
	n.Walk(func(node *Node, _ mgl64.Mat4) bool {
		if node.IsMesh() {
			found = node
			return false
		}
		return true
	})
	return found
}

// Find returns the first node with the given name, or nil.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(node *Node, _ mgl64.Mat4) bool {
		if node.Name == name {
			found = node
			return false
		}
		return true
	})
	return found
}

// Clone returns a deep copy of the subtree. Geometry buffers and materials
// are duplicated so the copy can be mutated independently. The recursion over
// Children is explicit; the flat leaf structs go through deepcopy.
func (n *Node) Clone() (*Node, error) {
	out := &Node{
		Name:          n.Name,
		Position:      n.Position,
		Rotation:      n.Rotation,
		Scale:         n.Scale,
		CastShadow:    n.CastShadow,
		ReceiveShadow: n.ReceiveShadow,
	}
	if n.Geometry != nil {
		out.Geometry = &Geometry{}
		if err := deepcopy.Copy(out.Geometry, n.Geometry); err != nil {
			return nil, errors.Wrapf(err, "cloning geometry of %q", n.Name)
		}
	}
	if n.Material != nil {
		out.Material = &Material{}
		if err := deepcopy.Copy(out.Material, n.Material); err != nil {
			return nil, errors.Wrapf(err, "cloning material of %q", n.Name)
		}
	}
	for _, c := range n.Children {
		cc, err := c.Clone()
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, cc)
	}
	return out, nil
}
