package router

import "strings"

// routeNode is a node in the route tree.
type routeNode struct {
	// segment is the path segment this node matches
	segment string

	// paramName is the parameter name (without : or *)
	paramName string

	// paramType is the expected parameter type (int, uint, uuid, string)
	paramType string

	isCatchAll bool

	route *Route

	// children are static segment children
	children []*routeNode

	// paramChild is the dynamic parameter child (:id)
	paramChild *routeNode

	// catchAllChild is the catch-all child (*slug)
	catchAllChild *routeNode
}

// findChild finds a child node with an exact segment match.
func (n *routeNode) findChild(segment string) *routeNode {
	for _, child := range n.children {
		if child.segment == segment {
			return child
		}
	}
	return nil
}

// insert adds the nodes for pattern and returns the last one.
func (n *routeNode) insert(pattern string) *routeNode {
	current := n
	for _, seg := range splitPath(pattern) {
		switch {
		case strings.HasPrefix(seg, "*"):
			if current.catchAllChild == nil {
				current.catchAllChild = &routeNode{paramName: seg[1:], paramType: "path", isCatchAll: true}
			}
			// A catch-all consumes the rest of the path.
			return current.catchAllChild
		case strings.HasPrefix(seg, ":"):
			name, paramType := parseParamSegment(seg)
			if current.paramChild == nil {
				current.paramChild = &routeNode{paramName: name, paramType: paramType}
			}
			current = current.paramChild
		default:
			child := current.findChild(seg)
			if child == nil {
				child = &routeNode{segment: seg}
				current.children = append(current.children, child)
			}
			current = child
		}
	}
	return current
}

// match finds the route for the given segments. Static segments win over
// parameters, parameters over catch-alls. A parameter whose value does not
// parse as its declared type does not match; the first such failure is
// reported so a near miss can be explained to the user.
func (n *routeNode) match(segments []string, params Params) (*routeNode, error) {
	if len(segments) == 0 {
		if n.route != nil {
			return n, nil
		}
		return nil, nil
	}

	segment, remaining := segments[0], segments[1:]
	var firstErr error

	if child := n.findChild(segment); child != nil {
		node, err := child.match(remaining, params)
		if node != nil {
			return node, nil
		}
		firstErr = err
	}

	if p := n.paramChild; p != nil {
		value, err := decodeSegment(segment, false)
		if err == nil {
			err = validateParam(value, p.paramType)
		}
		if err != nil {
			if firstErr == nil {
				firstErr = &paramError{name: p.paramName, value: segment, err: err}
			}
		} else {
			params[p.paramName] = value
			node, err := p.match(remaining, params)
			if node != nil {
				return node, nil
			}
			// Backtrack on failure
			delete(params, p.paramName)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if c := n.catchAllChild; c != nil && c.route != nil {
		rest, err := decodeSegment(strings.Join(segments, "/"), true)
		if err == nil {
			params[c.paramName] = rest
			return c, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	return nil, firstErr
}

// parseParamSegment extracts name and type from a parameter segment.
// Input: ":id" or ":id:int" -> name="id", type="string" or "int"
func parseParamSegment(seg string) (name, paramType string) {
	seg = seg[1:]
	if name, paramType, ok := strings.Cut(seg, ":"); ok {
		return name, paramType
	}
	return seg, "string"
}
