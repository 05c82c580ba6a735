package twitch

import "strings"

// ircMessage is one parsed IRC line as Twitch sends it:
// [@tags] [:prefix] COMMAND [params] [:trailing]
type ircMessage struct {
	Tags     map[string]string
	Nick     string
	Command  string
	Params   []string
	Trailing string
}

func parseLine(line string) ircMessage {
	msg := ircMessage{Tags: map[string]string{}}
	line = strings.TrimRight(line, "\r\n")

	if strings.HasPrefix(line, "@") {
		raw, rest, _ := strings.Cut(line[1:], " ")
		line = rest
		for _, pair := range strings.Split(raw, ";") {
			k, v, _ := strings.Cut(pair, "=")
			msg.Tags[k] = unescapeTag(v)
		}
	}

	if strings.HasPrefix(line, ":") {
		prefix, rest, _ := strings.Cut(line[1:], " ")
		line = rest
		// nick!user@host; plain server prefixes keep the whole string.
		if i := strings.IndexByte(prefix, '!'); i >= 0 {
			msg.Nick = prefix[:i]
		} else {
			msg.Nick = prefix
		}
	}

	if before, trailing, ok := strings.Cut(line, " :"); ok {
		msg.Trailing = trailing
		line = before
	}
	fields := strings.Fields(line)
	if len(fields) > 0 {
		msg.Command = fields[0]
		msg.Params = fields[1:]
	}
	return msg
}

// unescapeTag reverses IRCv3 tag value escaping.
func unescapeTag(v string) string {
	if !strings.ContainsRune(v, '\\') {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' || i == len(v)-1 {
			b.WriteByte(v[i])
			continue
		}
		i++
		switch v[i] {
		case ':':
			b.WriteByte(';')
		case 's':
			b.WriteByte(' ')
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

func (m ircMessage) channel() string {
	for _, p := range m.Params {
		if strings.HasPrefix(p, "#") {
			return strings.TrimPrefix(p, "#")
		}
	}
	return ""
}

func (m ircMessage) hasBadge(name string) bool {
	badges := m.Tags["badges"]
	if badges == "" {
		return false
	}
	for _, b := range strings.Split(badges, ",") {
		if strings.HasPrefix(b, name+"/") {
			return true
		}
	}
	return false
}
