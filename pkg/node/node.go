// Package node defines the immutable tree values the engine operates on.
//
// A Node describes one UI element at a point in time. Nodes are plain
// values: "updating" a node means producing a new Node, never mutating one
// in place. Because they are immutable they can be shared freely across
// goroutines without locking.
package node

import (
	"errors"
	"reflect"
	"strconv"

	wefterrors "github.com/go-weft/weft/pkg/errors"
)

// Prop is a single named attribute of a node.
type Prop struct {
	Name  string
	Value any
}

// P constructs a Prop. It reads better than a struct literal in tree builders:
//
//	node.New("text", "", node.Props{node.P("content", "Hello")})
func P(name string, value any) Prop {
	return Prop{Name: name, Value: value}
}

// Props is an ordered list of node attributes. Order is significant: it is
// preserved through scene files and prop-by-prop comparison.
type Props []Prop

// Get returns the value for name and whether it was present.
func (p Props) Get(name string) (any, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Value, true
		}
	}
	return nil, false
}

// Equal reports whether two prop lists have the same names and values in the
// same order.
func (p Props) Equal(other Props) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i].Name != other[i].Name {
			return false
		}
		if !reflect.DeepEqual(p[i].Value, other[i].Value) {
			return false
		}
	}
	return true
}

// With returns a copy of p with name set to value, appending when the name is
// not already present. The receiver is left untouched.
func (p Props) With(name string, value any) Props {
	out := make(Props, len(p))
	copy(out, p)
	for i := range out {
		if out[i].Name == name {
			out[i].Value = value
			return out
		}
	}
	return append(out, Prop{Name: name, Value: value})
}

// Node is an immutable description of one UI element and its children.
// A node with a non-empty Key has an explicit identity that is stable across
// rebuilds regardless of position; a node without one is identified by its
// position among its siblings.
type Node struct {
	Kind     string
	Key      string
	Props    Props
	Children []Node
}

// New constructs a Node. Sibling identity uniqueness is validated at the tree
// level (see Validate and the scene loader), not here: a Node is a pure value
// and knows nothing about its siblings.
func New(kind, key string, props Props, children ...Node) Node {
	return Node{Kind: kind, Key: key, Props: props, Children: children}
}

// Equals reports structural equality over Kind and Props only. Children are
// deliberately excluded: the reconciler uses Equals to decide whether a node
// itself changed, separately from whatever happened to its descendants.
func (n Node) Equals(other Node) bool {
	return n.Kind == other.Kind && n.Props.Equal(other.Props)
}

// Identity returns the identity of n when it sits at the given position in
// its sibling list: the explicit key when present, the position otherwise.
func (n Node) Identity(index int) Identity {
	if n.Key != "" {
		return Key(n.Key)
	}
	return Index(index)
}

// FindByKey returns the first node in the tree (preorder) carrying the given
// explicit key.
func FindByKey(n Node, key string) (Node, bool) {
	if n.Key == key {
		return n, true
	}
	for _, child := range n.Children {
		if found, ok := FindByKey(child, key); ok {
			return found, true
		}
	}
	return Node{}, false
}

// Identity is a stable identifier distinguishing sibling nodes across
// rebuilds. It is either an explicit user-supplied key or a positional index,
// and is comparable, so it can be used as a map key.
type Identity struct {
	key   string
	index int
	keyed bool
}

// Key returns an explicit-key identity.
func Key(key string) Identity {
	return Identity{key: key, keyed: true}
}

// Index returns a positional identity.
func Index(i int) Identity {
	return Identity{index: i}
}

// Keyed reports whether the identity is an explicit key rather than a
// position.
func (id Identity) Keyed() bool { return id.keyed }

// String renders the key, or "#<index>" for positional identities.
func (id Identity) String() string {
	if id.keyed {
		return id.key
	}
	return "#" + strconv.Itoa(id.index)
}

// Validate checks the whole tree for sibling identity collisions. Every
// duplicate occurrence is reported: the returned error joins one
// DuplicateIdentityError per sibling that carries an identity already taken
// by an earlier sibling.
func Validate(n Node) error {
	var errs []error
	validateSiblings(n, &errs)
	return errors.Join(errs...)
}

// ValidateSiblings checks one sibling list for identity collisions without
// descending into the children's own subtrees. parentKind is used in error
// reports only.
func ValidateSiblings(parentKind string, siblings []Node) error {
	var errs []error
	checkSiblings(parentKind, siblings, &errs)
	return errors.Join(errs...)
}

func validateSiblings(n Node, errs *[]error) {
	checkSiblings(n.Kind, n.Children, errs)
	for _, child := range n.Children {
		validateSiblings(child, errs)
	}
}

func checkSiblings(parentKind string, siblings []Node, errs *[]error) {
	seen := make(map[Identity]bool, len(siblings))
	for i, child := range siblings {
		id := child.Identity(i)
		if seen[id] {
			*errs = append(*errs, &wefterrors.DuplicateIdentityError{
				Identity:   id.String(),
				ParentKind: parentKind,
			})
			continue
		}
		seen[id] = true
	}
}
