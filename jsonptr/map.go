package jsonptr

import "strconv"

// Get returns the value addressed by pointer inside root. Maps are indexed by
// key and []any by decimal index.
func Get(root map[string]any, pointer string) (any, bool) {
	tokens, err := Parse(pointer)
	if err != nil {
		return nil, false
	}
	return GetTokens(root, tokens)
}

// GetTokens is Get for an already parsed pointer.
func GetTokens(root map[string]any, tokens []string) (any, bool) {
	var current any = root
	for _, token := range tokens {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[token]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, ok := index(token, len(node))
			if !ok {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// Set stores value at pointer, creating intermediate maps for missing object
// members. Array elements can be replaced but arrays are never grown. It
// reports whether the value was stored.
func Set(root map[string]any, pointer string, value any) bool {
	tokens, err := Parse(pointer)
	if err != nil || len(tokens) == 0 {
		return false
	}
	return SetTokens(root, tokens, value)
}

// SetTokens is Set for an already parsed pointer.
func SetTokens(root map[string]any, tokens []string, value any) bool {
	if len(tokens) == 0 {
		return false
	}

	var current any = root
	last := len(tokens) - 1
	for i, token := range tokens {
		switch node := current.(type) {
		case map[string]any:
			if i == last {
				node[token] = value
				return true
			}
			next, ok := node[token]
			if !ok || next == nil {
				next = make(map[string]any)
				node[token] = next
			}
			current = next
		case []any:
			idx, ok := index(token, len(node))
			if !ok {
				return false
			}
			if i == last {
				node[idx] = value
				return true
			}
			current = node[idx]
		default:
			return false
		}
	}
	return false
}

// Delete removes the member or array element addressed by pointer. It
// reports whether anything was removed; a missing path is not an error.
func Delete(root map[string]any, pointer string) bool {
	tokens, err := Parse(pointer)
	if err != nil || len(tokens) == 0 {
		return false
	}

	parentTokens, key := tokens[:len(tokens)-1], tokens[len(tokens)-1]
	parent, ok := GetTokens(root, parentTokens)
	if !ok {
		return false
	}

	switch node := parent.(type) {
	case map[string]any:
		if _, exists := node[key]; !exists {
			return false
		}
		delete(node, key)
		return true
	case []any:
		idx, ok := index(key, len(node))
		if !ok {
			return false
		}
		shrunk := append(node[:idx:idx], node[idx+1:]...)
		return SetTokens(root, parentTokens, shrunk)
	default:
		return false
	}
}

func index(token string, length int) (int, bool) {
	if token == "" || (len(token) > 1 && token[0] == '0') {
		return 0, false
	}
	idx, err := strconv.Atoi(token)
	if err != nil || idx < 0 || idx >= length {
		return 0, false
	}
	return idx, true
}
