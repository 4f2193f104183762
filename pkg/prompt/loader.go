// Package prompt loads Markdown prompt templates from disk and fills their
// {placeholder} fields.
//
// Placeholder syntax: {name} is replaced by values["name"]; {{ and }} produce
// literal braces. Every placeholder must be bound.
package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
)

var (
	ErrTemplateNotFound = errors.New("prompt file not found")
	ErrMissingKey       = errors.New("prompt formatting error: missing key")
	ErrMalformed        = errors.New("prompt formatting error: malformed template")
)

// MissingKeyError names the placeholder that had no value.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("prompt formatting error: missing key '%s'", e.Key)
}

func (e *MissingKeyError) Is(target error) bool {
	return target == ErrMissingKey
}

// Loader reads templates fresh on every call; it keeps no cache.
type Loader struct {
	fsys fs.FS
}

func NewLoader(dir string) *Loader {
	return &Loader{fsys: os.DirFS(dir)}
}

func NewLoaderFS(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

func (l *Loader) Load(name string) (string, error) {
	raw, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return "", fmt.Errorf("read prompt %s: %w", name, err)
	}
	return string(raw), nil
}

// Fill loads the named template and substitutes values into it.
func (l *Loader) Fill(name string, values map[string]string) (string, error) {
	tmpl, err := l.Load(name)
	if err != nil {
		return "", err
	}
	return Format(tmpl, values)
}

// Format substitutes values into tmpl. Unused values are ignored.
func Format(tmpl string, values map[string]string) (string, error) {
	var out strings.Builder
	out.Grow(len(tmpl))

	err := scan(tmpl, func(literal string) {
		out.WriteString(literal)
	}, func(key string) error {
		v, ok := values[key]
		if !ok {
			return &MissingKeyError{Key: key}
		}
		out.WriteString(v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// Placeholders lists the distinct placeholder names of tmpl in sorted order.
func Placeholders(tmpl string) ([]string, error) {
	seen := make(map[string]struct{})
	err := scan(tmpl, func(string) {}, func(key string) error {
		seen[key] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func scan(tmpl string, onLiteral func(string), onField func(string) error) error {
	i := 0
	for i < len(tmpl) {
		switch c := tmpl[i]; c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				onLiteral("{")
				i += 2
				continue
			}
			end := strings.IndexAny(tmpl[i+1:], "{}")
			if end < 0 || tmpl[i+1+end] != '}' {
				return fmt.Errorf("%w: unterminated placeholder at offset %d", ErrMalformed, i)
			}
			key := tmpl[i+1 : i+1+end]
			if key == "" {
				return fmt.Errorf("%w: empty placeholder at offset %d", ErrMalformed, i)
			}
			if err := onField(key); err != nil {
				return err
			}
			i += end + 2
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				onLiteral("}")
				i += 2
				continue
			}
			return fmt.Errorf("%w: single '}' at offset %d", ErrMalformed, i)
		default:
			next := strings.IndexAny(tmpl[i:], "{}")
			if next < 0 {
				onLiteral(tmpl[i:])
				return nil
			}
			onLiteral(tmpl[i : i+next])
			i += next
		}
	}
	return nil
}
