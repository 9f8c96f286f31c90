// Package template implements the substitution rules the Glossary
// defines for plugin output and hook/log message formatting (spec.md
// §6 "Template substitution"): `#{key}` keyword lookup, `${VAR}`
// environment lookup, `@{fg[,bg[,attr...]]}` IRC color escapes, and
// strftime directives, with `##{x}` as a literal escape for `#{x}`.
package template

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// Keywords is the caller-supplied map `#{key}` substitution reads
// from (e.g. a plugin's own named values, or rule/hook context like
// server/channel/origin).
type Keywords map[string]string

// Format expands all substitution rules in tmpl against keywords and
// the process environment, then applies strftime formatting to the
// result using `at` as the reference time. Returns an error if tmpl
// references an unknown keyword or a malformed `@{...}` color spec —
// matching the original implementation's strict keyword lookup.
func Format(tmpl string, keywords Keywords, at time.Time) (string, error) {
	expanded, err := expand(tmpl, keywords)
	if err != nil {
		return "", err
	}
	return strftime.Format(expanded, at), nil
}

func expand(tmpl string, keywords Keywords) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		switch {
		case strings.HasPrefix(tmpl[i:], "##{"):
			end := strings.IndexByte(tmpl[i+3:], '}')
			if end < 0 {
				return "", fmt.Errorf("template: unterminated ##{ at offset %d", i)
			}
			inner := tmpl[i+3 : i+3+end]
			b.WriteString("#{")
			b.WriteString(inner)
			b.WriteByte('}')
			i += 3 + end + 1
		case strings.HasPrefix(tmpl[i:], "#{"):
			end := strings.IndexByte(tmpl[i+2:], '}')
			if end < 0 {
				return "", fmt.Errorf("template: unterminated #{ at offset %d", i)
			}
			key := tmpl[i+2 : i+2+end]
			val, ok := keywords[key]
			if !ok {
				return "", fmt.Errorf("template: unknown keyword %q", key)
			}
			b.WriteString(val)
			i += 2 + end + 1
		case strings.HasPrefix(tmpl[i:], "${"):
			end := strings.IndexByte(tmpl[i+2:], '}')
			if end < 0 {
				return "", fmt.Errorf("template: unterminated ${ at offset %d", i)
			}
			name := tmpl[i+2 : i+2+end]
			b.WriteString(os.Getenv(name))
			i += 2 + end + 1
		case strings.HasPrefix(tmpl[i:], "@{"):
			end := strings.IndexByte(tmpl[i+2:], '}')
			if end < 0 {
				return "", fmt.Errorf("template: unterminated @{ at offset %d", i)
			}
			spec := tmpl[i+2 : i+2+end]
			esc, err := colorEscape(spec)
			if err != nil {
				return "", err
			}
			b.WriteString(esc)
			i += 2 + end + 1
		default:
			b.WriteByte(tmpl[i])
			i++
		}
	}
	return b.String(), nil
}

// colorEscape renders a "fg[,bg[,attr...]]" color spec into the IRC
// control-code sequence spec.md §6 specifies: `\x03FG,BG` followed by
// one control byte per requested attribute.
func colorEscape(spec string) (string, error) {
	if spec == "" {
		return "", nil
	}
	parts := strings.Split(spec, ",")

	fg, err := resolveColor(parts[0])
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteByte('\x03')
	b.WriteString(fg)

	if len(parts) > 1 && parts[1] != "" {
		bg, err := resolveColor(parts[1])
		if err != nil {
			return "", err
		}
		b.WriteByte(',')
		b.WriteString(bg)
	}

	for _, attr := range parts[2:] {
		code, ok := attrCodes[attr]
		if !ok {
			return "", fmt.Errorf("template: unknown color attribute %q", attr)
		}
		b.WriteByte(code)
	}

	return b.String(), nil
}

func resolveColor(token string) (string, error) {
	if n, ok := colorNames[strings.ToLower(token)]; ok {
		return n, nil
	}
	for _, c := range token {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("template: unknown color %q", token)
		}
	}
	return token, nil
}

// colorNames maps the mIRC color vocabulary to their two-digit codes.
var colorNames = map[string]string{
	"white":      "00",
	"black":      "01",
	"blue":       "02",
	"green":      "03",
	"red":        "04",
	"brown":      "05",
	"purple":     "06",
	"orange":     "07",
	"yellow":     "08",
	"lightgreen": "09",
	"cyan":       "10",
	"lightcyan":  "11",
	"lightblue":  "12",
	"pink":       "13",
	"grey":       "14",
	"lightgrey":  "15",
}

// attrCodes maps attribute names to their IRC formatting control byte.
var attrCodes = map[string]byte{
	"bold":      '\x02',
	"italic":    '\x1D',
	"underline": '\x1F',
	"reverse":   '\x16',
	"reset":     '\x0F',
}
