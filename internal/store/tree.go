package store

import (
	"encoding/json"
	"strconv"
)

// normalize converts value into generic JSON nodes (map[string]any, []any, scalars) and drops
// empty containers, which the store never keeps.
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return prune(out), nil
}

func prune(node any) any {
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			if pruned := prune(v); pruned == nil {
				delete(n, k)
			} else {
				n[k] = pruned
			}
		}
		if len(n) == 0 {
			return nil
		}
		return n
	case []any:
		empty := true
		for i, v := range n {
			n[i] = prune(v)
			if n[i] != nil {
				empty = false
			}
		}
		if empty {
			return nil
		}
		return n
	default:
		return node
	}
}

func getAt(node any, segs []string) (any, bool) {
	for _, seg := range segs {
		switch n := node.(type) {
		case map[string]any:
			v, ok := n[seg]
			if !ok {
				return nil, false
			}
			node = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(n) {
				return nil, false
			}
			node = n[i]
		default:
			return nil, false
		}
		if node == nil {
			return nil, false
		}
	}
	return node, node != nil
}

// setAt returns node with the subtree at segs replaced by value. A nil value removes the
// subtree; containers left empty by the removal disappear as well.
func setAt(node any, segs []string, value any) any {
	if len(segs) == 0 {
		return value
	}
	head, rest := segs[0], segs[1:]
	switch n := node.(type) {
	case map[string]any:
		child := setAt(n[head], rest, value)
		if child == nil {
			delete(n, head)
		} else {
			n[head] = child
		}
		if len(n) == 0 {
			return nil
		}
		return n
	case []any:
		if i, err := strconv.Atoi(head); err == nil && i >= 0 && i < len(n) {
			n[i] = setAt(n[i], rest, value)
			return prune(n)
		}
		return setAt(arrayToMap(n), segs, value)
	default:
		child := setAt(nil, rest, value)
		if child == nil {
			return node
		}
		return map[string]any{head: child}
	}
}

func arrayToMap(items []any) map[string]any {
	out := make(map[string]any, len(items))
	for i, v := range items {
		if v != nil {
			out[strconv.Itoa(i)] = v
		}
	}
	return out
}

func decodeDoc(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
