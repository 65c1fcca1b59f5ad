package builder

import "strings"

// scan copies sql to out, calling fn for every :name placeholder outside of
// quoted strings, quoted identifiers and comments. fn is responsible for
// writing the replacement to out.
func scan(sql string, out *strings.Builder, fn func(name string) error) error {
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]

		if quote != 0 {
			out.WriteByte(c)
			if c == '\\' && quote != '`' && i+1 < len(sql) {
				i++
				out.WriteByte(sql[i])
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}

		switch c {
		case '\'', '"', '`':
			quote = c
			out.WriteByte(c)
			continue
		case '-':
			if strings.HasPrefix(sql[i:], "--") {
				end := strings.IndexByte(sql[i:], '\n')
				if end < 0 {
					end = len(sql) - i
				}
				out.WriteString(sql[i : i+end])
				i += end - 1
				continue
			}
			out.WriteByte(c)
			continue
		case '/':
			if strings.HasPrefix(sql[i:], "/*") {
				end := strings.Index(sql[i+2:], "*/")
				if end < 0 {
					end = len(sql) - i
				} else {
					end += 4
				}
				out.WriteString(sql[i : i+end])
				i += end - 1
				continue
			}
			out.WriteByte(c)
			continue
		case ':':
		default:
			out.WriteByte(c)
			continue
		}

		// :: cast
		if i+1 < len(sql) && sql[i+1] == ':' {
			out.WriteString("::")
			i++
			continue
		}

		end := i + 1
		if end < len(sql) && isNameStart(sql[end]) {
			for end < len(sql) && isNameChar(sql[end]) {
				end++
			}
		}
		if end == i+1 {
			out.WriteByte(c)
			continue
		}

		if err := fn(sql[i+1 : end]); err != nil {
			return err
		}
		i = end - 1
	}
	return nil
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
