package scanner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FieldKind is the value type a template field decodes to.
type FieldKind int

const (
	KindInt FieldKind = iota
	KindFloat
	KindString
)

// Field describes one substitution in a path template, in order of
// appearance. A field name that repeats gets an "_n" suffix from its second
// appearance on; all appearances are expected to carry the same value.
type Field struct {
	Name string
	Kind FieldKind
}

// directive matches one %(name)Wv substitution: a field name, an optional
// width, and a verb.
var directive = regexp.MustCompile(`%\((\w+)\)(\d*)([dioueEfFgGcrs])`)

// Template is a path template with named substitutions, e.g.
//
//	raw/v%(visit)07d/e%(exposure)03d.dat
//
// A parsed template renders concrete paths from a data ID and, in the other
// direction, decomposes concrete paths back into data IDs.
type Template struct {
	raw    string
	src    string // raw with any trailing bracket directive trimmed
	glob   string
	re     *regexp.Regexp
	fields []Field
}

// Parse compiles a path template. A trailing bracketed directive (such as a
// fragment selector "file.dat[3]") is trimmed off before compilation.
func Parse(tmpl string) (*Template, error) {
	raw := tmpl
	if strings.HasSuffix(tmpl, "]") {
		if i := strings.LastIndex(tmpl, "["); i >= 0 {
			tmpl = tmpl[:i]
		}
	}

	t := &Template{
		raw:  raw,
		src:  tmpl,
		glob: directive.ReplaceAllString(tmpl, "*"),
	}

	var (
		reStr string
		last  int
		seen  = map[string]bool{}
		n     int
	)
	for _, m := range directive.FindAllStringSubmatchIndex(tmpl, -1) {
		name := tmpl[m[2]:m[3]]
		width := tmpl[m[4]:m[5]]
		verb := tmpl[m[6]:m[7]]

		if seen[name] {
			name = fmt.Sprintf("%s_%d", name, n)
			n++
		}
		seen[name] = true

		reStr += regexp.QuoteMeta(tmpl[last:m[0]])
		last = m[1]

		var kind FieldKind
		switch verb {
		case "r":
			kind = KindString
			reStr += `(?P<` + name + `>.+)`
		case "s":
			kind = KindString
			if width != "" {
				reStr += `(?P<` + name + `>.{1,` + width + `})`
			} else {
				reStr += `(?P<` + name + `>.+)`
			}
		case "c":
			kind = KindString
			reStr += `(?P<` + name + `>.)`
		case "e", "E", "f", "F", "g", "G":
			kind = KindFloat
			reStr += `(?P<` + name + `>[\d.eE+-]+)`
		default: // d, i, o, u
			kind = KindInt
			if width != "" {
				reStr += `(?P<` + name + `>[\d+-]{1,` + width + `})`
			} else {
				reStr += `(?P<` + name + `>[\d+-]+)`
			}
		}
		t.fields = append(t.fields, Field{Name: name, Kind: kind})
	}
	reStr += regexp.QuoteMeta(tmpl[last:])

	re, err := regexp.Compile(`^` + reStr + `$`)
	if err != nil {
		return nil, fmt.Errorf("scanner: compiling template %q: %w", raw, err)
	}
	t.re = re
	return t, nil
}

// Fields returns the template's fields in order of appearance.
func (t *Template) Fields() []Field {
	return t.fields
}

// Glob returns the template as a glob pattern with every substitution
// replaced by a wildcard.
func (t *Template) Glob() string {
	return t.glob
}

// String returns the template source text.
func (t *Template) String() string {
	return t.raw
}

// Render produces a concrete path by substituting data ID values into the
// template. Every field must be present in the data ID; repeated fields read
// their base name.
func (t *Template) Render(dataID map[string]any) (string, error) {
	var out strings.Builder
	src := t.src
	last := 0
	for _, m := range directive.FindAllStringSubmatchIndex(src, -1) {
		name := src[m[2]:m[3]]
		width := src[m[4]:m[5]]
		verb := src[m[6]:m[7]]

		out.WriteString(src[last:m[0]])
		last = m[1]

		v, ok := dataID[name]
		if !ok {
			return "", fmt.Errorf("scanner: data ID is missing field %q for template %q", name, t.raw)
		}

		switch verb {
		case "d", "i", "o", "u":
			n, err := toInt(v)
			if err != nil {
				return "", fmt.Errorf("scanner: field %q: %w", name, err)
			}
			out.WriteString(fmt.Sprintf("%0*d", widthOrZero(width), n))
		case "e", "E", "f", "F", "g", "G":
			f, err := toFloat(v)
			if err != nil {
				return "", fmt.Errorf("scanner: field %q: %w", name, err)
			}
			out.WriteString(fmt.Sprintf("%"+string(verb), f))
		default: // s, r, c
			out.WriteString(fmt.Sprint(v))
		}
	}
	out.WriteString(src[last:])
	return out.String(), nil
}

// Match decomposes a concrete path into a typed data ID. Repeated fields are
// reported under their suffixed names as well as the base name.
func (t *Template) Match(path string) (map[string]any, bool) {
	m := t.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}

	dataID := make(map[string]any, len(t.fields))
	for i, name := range t.re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		kind := t.fieldKind(name)
		switch kind {
		case KindInt:
			n, err := strconv.ParseInt(m[i], 10, 64)
			if err != nil {
				return nil, false
			}
			dataID[name] = int(n)
		case KindFloat:
			f, err := strconv.ParseFloat(m[i], 64)
			if err != nil {
				return nil, false
			}
			dataID[name] = f
		default:
			dataID[name] = m[i]
		}
	}
	return dataID, true
}

func (t *Template) fieldKind(name string) FieldKind {
	for _, f := range t.fields {
		if f.Name == name {
			return f.Kind
		}
	}
	return KindString
}

func widthOrZero(width string) int {
	if width == "" {
		return 0
	}
	n, _ := strconv.Atoi(width)
	return n
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("cannot render %T as an integer", v)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, fmt.Errorf("cannot render %T as a float", v)
}
