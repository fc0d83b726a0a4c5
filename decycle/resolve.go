package decycle

import (
	"fmt"
	"sort"
)

// ReferenceError reports a marker whose path names no earlier node.
type ReferenceError struct {
	At   string
	Path string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("decycle: reference at %s to unknown path %q", e.At, e.Path)
}

// RefPath reports whether node is a reference marker and returns its path.
func RefPath(node any) (string, bool) {
	m, ok := node.(map[string]any)
	if !ok || len(m) != 1 {
		return "", false
	}
	p, ok := m[RefKey].(string)
	return p, ok
}

// Index maps every object and array of a decoded JSON tree to its path.
// Reference markers are not indexed.
func Index(root any) map[string]any {
	idx := make(map[string]any)
	index(root, Root, idx)
	return idx
}

func index(node any, path string, idx map[string]any) {
	if _, ok := RefPath(node); ok {
		return
	}
	switch n := node.(type) {
	case map[string]any:
		idx[path] = n
		for k, v := range n {
			index(v, Member(path, k), idx)
		}
	case []any:
		idx[path] = n
		for i, v := range n {
			index(v, Element(path, i), idx)
		}
	}
}

// Resolve replaces every reference marker in a tree produced by
// json.Unmarshal with the node found at the marker's path. Shared nodes
// become shared again and cycles are re-established, so the result must
// not be passed back to json.Marshal without Encode.
func Resolve(root any) (any, error) {
	if p, ok := RefPath(root); ok {
		return nil, &ReferenceError{At: Root, Path: p}
	}
	idx := Index(root)
	if err := resolve(root, Root, idx); err != nil {
		return nil, err
	}
	return root, nil
}

func resolve(node any, path string, idx map[string]any) error {
	switch n := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			at := Member(path, k)
			if p, ok := RefPath(n[k]); ok {
				target, found := idx[p]
				if !found {
					return &ReferenceError{At: at, Path: p}
				}
				n[k] = target
				continue
			}
			if err := resolve(n[k], at, idx); err != nil {
				return err
			}
		}
	case []any:
		for i, v := range n {
			at := Element(path, i)
			if p, ok := RefPath(v); ok {
				target, found := idx[p]
				if !found {
					return &ReferenceError{At: at, Path: p}
				}
				n[i] = target
				continue
			}
			if err := resolve(v, at, idx); err != nil {
				return err
			}
		}
	}
	return nil
}
