package vfs

import "strings"

// Normalize collapses a VFS path to a clean, slash-separated, absolute
// form: leading/trailing slashes trimmed of duplicates, `.` segments
// dropped, `..` segments resolved against what precedes them (without
// ever escaping above the root `/`). The result always starts with `/`
// and never ends with `/` unless it is exactly `/`.
func Normalize(path string) string {
	if path == "" {
		path = "/"
	}
	segments := strings.Split(path, "/")
	var out []string
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return "/"
	}
	return "/" + strings.Join(out, "/")
}

// hasPrefix reports whether the normalized path lies at or under the
// normalized mount prefix ("/" covers every path).
func hasPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

// StripPrefix removes prefix from path, returning the backend-relative
// remainder (always starting with "/").
func StripPrefix(path, prefix string) string {
	if prefix == "/" {
		if path == "" {
			return "/"
		}
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" {
		return "/"
	}
	return rest
}
