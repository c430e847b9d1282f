// Package scene reads and writes declarative node-tree descriptions.
//
// A scene file is a YAML document carrying a format version and one root
// node:
//
//	scene: v1.0.0
//	root:
//	  kind: column
//	  key: screen
//	  props: {title: Todos}
//	  children:
//	    - kind: text
//	      key: header
//	      props: {content: "My Tasks"}
//
// Prop order in the file is preserved in the loaded tree, which is why
// decoding goes through yaml.Node rather than a plain map.
package scene

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	wefterrors "github.com/go-weft/weft/pkg/errors"
	"github.com/go-weft/weft/pkg/node"
)

// Version is the scene format version written by Dump.
const Version = "v1.0.0"

// supportedMajor gates which scene files this loader accepts.
const supportedMajor = "v1"

// ErrUnsupportedVersion is returned for scene files whose format version is
// missing, malformed, or outside the supported major.
var ErrUnsupportedVersion = errors.New("unsupported scene format version")

type document struct {
	Scene string    `yaml:"scene"`
	Root  yaml.Node `yaml:"root"`
}

// Load reads one scene document and returns its node tree. Unknown fields,
// missing kinds, duplicate sibling identities, and unsupported format
// versions are all rejected.
func Load(r io.Reader) (node.Node, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return node.Node{}, sceneError("scene.Load", fmt.Errorf("parse scene document: %w", err))
	}
	if err := checkVersion(doc.Scene); err != nil {
		return node.Node{}, sceneError("scene.Load", err)
	}
	if doc.Root.IsZero() {
		return node.Node{}, sceneError("scene.Load", errors.New("scene document has no root"))
	}

	n, err := decodeNode(&doc.Root)
	if err != nil {
		return node.Node{}, sceneError("scene.Load", err)
	}
	if err := node.Validate(n); err != nil {
		return node.Node{}, sceneError("scene.Load", err)
	}
	return n, nil
}

// LoadFile reads a scene file from disk.
func LoadFile(path string) (node.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return node.Node{}, sceneError("scene.Load", err)
	}
	defer f.Close()
	return Load(f)
}

func checkVersion(version string) error {
	if version == "" {
		return fmt.Errorf("missing scene version: %w", ErrUnsupportedVersion)
	}
	if !semver.IsValid(version) {
		return fmt.Errorf("scene version %q is not valid semver: %w", version, ErrUnsupportedVersion)
	}
	if semver.Major(version) != supportedMajor {
		return fmt.Errorf("scene version %q (supported: %s): %w", version, supportedMajor, ErrUnsupportedVersion)
	}
	return nil
}

func decodeNode(y *yaml.Node) (node.Node, error) {
	if y.Kind == yaml.AliasNode {
		y = y.Alias
	}
	if y.Kind != yaml.MappingNode {
		return node.Node{}, fmt.Errorf("line %d: node must be a mapping", y.Line)
	}

	var n node.Node
	for i := 0; i+1 < len(y.Content); i += 2 {
		key, value := y.Content[i], y.Content[i+1]
		switch key.Value {
		case "kind":
			if err := value.Decode(&n.Kind); err != nil {
				return node.Node{}, fmt.Errorf("line %d: kind: %w", value.Line, err)
			}
		case "key":
			if err := value.Decode(&n.Key); err != nil {
				return node.Node{}, fmt.Errorf("line %d: key: %w", value.Line, err)
			}
		case "props":
			props, err := decodeProps(value)
			if err != nil {
				return node.Node{}, err
			}
			n.Props = props
		case "children":
			children, err := decodeChildren(value)
			if err != nil {
				return node.Node{}, err
			}
			n.Children = children
		default:
			return node.Node{}, fmt.Errorf("line %d: unknown node field %q", key.Line, key.Value)
		}
	}
	if n.Kind == "" {
		return node.Node{}, fmt.Errorf("line %d: node is missing a kind", y.Line)
	}
	return n, nil
}

func decodeProps(y *yaml.Node) (node.Props, error) {
	if y.Kind == yaml.AliasNode {
		y = y.Alias
	}
	if y.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: props must be a mapping", y.Line)
	}
	props := make(node.Props, 0, len(y.Content)/2)
	for i := 0; i+1 < len(y.Content); i += 2 {
		key, value := y.Content[i], y.Content[i+1]
		var v any
		if err := value.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: prop %q: %w", value.Line, key.Value, err)
		}
		props = append(props, node.P(key.Value, v))
	}
	return props, nil
}

func decodeChildren(y *yaml.Node) ([]node.Node, error) {
	if y.Kind == yaml.AliasNode {
		y = y.Alias
	}
	if y.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: children must be a sequence", y.Line)
	}
	children := make([]node.Node, 0, len(y.Content))
	for _, item := range y.Content {
		child, err := decodeNode(item)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// Dump writes the tree as a canonical scene document, props in order.
func Dump(w io.Writer, n node.Node) error {
	root, err := encodeNode(n)
	if err != nil {
		return sceneError("scene.Dump", err)
	}
	doc := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			scalar("scene"), scalar(Version),
			scalar("root"), root,
		},
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return sceneError("scene.Dump", err)
	}
	return enc.Close()
}

func encodeNode(n node.Node) (*yaml.Node, error) {
	out := &yaml.Node{Kind: yaml.MappingNode}
	out.Content = append(out.Content, scalar("kind"), scalar(n.Kind))
	if n.Key != "" {
		out.Content = append(out.Content, scalar("key"), scalar(n.Key))
	}
	if len(n.Props) > 0 {
		props := &yaml.Node{Kind: yaml.MappingNode}
		for _, p := range n.Props {
			var value yaml.Node
			if err := value.Encode(p.Value); err != nil {
				return nil, fmt.Errorf("prop %q: %w", p.Name, err)
			}
			props.Content = append(props.Content, scalar(p.Name), &value)
		}
		out.Content = append(out.Content, scalar("props"), props)
	}
	if len(n.Children) > 0 {
		children := &yaml.Node{Kind: yaml.SequenceNode}
		for _, child := range n.Children {
			encoded, err := encodeNode(child)
			if err != nil {
				return nil, err
			}
			children.Content = append(children.Content, encoded)
		}
		out.Content = append(out.Content, scalar("children"), children)
	}
	return out, nil
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
}

func sceneError(op string, err error) error {
	return &wefterrors.WeftError{Op: op, Kind: wefterrors.KindScene, Err: err}
}
