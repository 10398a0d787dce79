package str

import "strings"

// ToScreamingSnakeCase transforms a given string into screaming snake case format.
//
// Dots, dashes and underscores all become a single underscore, so that a dotted configuration key maps to the name
// of an environment variable.
func ToScreamingSnakeCase(in string) string {
	in = strings.TrimSpace(in)
	if len(in) == 0 {
		return in
	}

	sb := strings.Builder{}
	sb.Grow(len(in) + len(in)/3) // estimate space for underscores

	pendingSeparator := false
	var previous byte
	for i, b := range []byte(in) {
		switch {
		case b == '_' || b == '-' || b == '.':
			pendingSeparator = true
			continue
		case 'a' <= b && b <= 'z':
			b -= 'a' - 'A' // convert to uppercase
		case 'A' <= b && b <= 'Z':
			if i > 0 && ('a' <= previous && previous <= 'z' || '0' <= previous && previous <= '9') {
				pendingSeparator = true
			}
		}

		if pendingSeparator && sb.Len() > 0 {
			sb.WriteByte('_')
		}
		pendingSeparator = false
		sb.WriteByte(b)
		previous = in[i]
	}

	return sb.String()
}

// EnvName returns the environment variable holding the configuration key, with an optional prefix.
func EnvName(prefix string, key string) string {
	name := ToScreamingSnakeCase(key)
	if prefix != "" {
		return ToScreamingSnakeCase(prefix) + "_" + name
	}
	return name
}
