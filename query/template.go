package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Konsultn-Engineering/tagsql/dialect"
)

var (
	ErrSlotMismatch = errors.New("query: fragment count must be slot count + 1")
	ErrKeyedSlot    = errors.New("query: template has named keys, values expected")
	ErrValueSlot    = errors.New("query: template has bound values, named keys expected")
	ErrDuplicateKey = errors.New("query: duplicate key")
	ErrEmptyKey     = errors.New("query: empty key")
)

// Template is trusted SQL text interleaved with slots. Text is written into the
// query verbatim; a slot only ever becomes a placeholder, its value travels to
// the driver as a bound parameter.
//
// Invariant: len(fragments) == len(slots)+1.
type Template struct {
	fragments []string
	slots     []slot
}

type slot struct {
	value any
	key   string
	keyed bool
}

// Text starts a template with a literal fragment.
//
//	query.Text("SELECT * FROM alunos WHERE nome = ").Arg(nome)
func Text(sql string) *Template {
	return &Template{fragments: []string{sql}}
}

// SQL builds a template the way a tagged literal would: the fragments surround
// the values, so len(fragments) must be len(values)+1.
func SQL(fragments []string, values ...any) (*Template, error) {
	if len(fragments) != len(values)+1 {
		return nil, fmt.Errorf("%w: %d fragments, %d values", ErrSlotMismatch, len(fragments), len(values))
	}
	t := &Template{
		fragments: append([]string(nil), fragments...),
		slots:     make([]slot, len(values)),
	}
	for i, v := range values {
		t.slots[i] = slot{value: v}
	}
	return t, nil
}

// Named builds a template whose slots are named keys, for prepared statements.
func Named(fragments []string, keys ...string) (*Template, error) {
	if len(fragments) != len(keys)+1 {
		return nil, fmt.Errorf("%w: %d fragments, %d keys", ErrSlotMismatch, len(fragments), len(keys))
	}
	t := &Template{
		fragments: append([]string(nil), fragments...),
		slots:     make([]slot, len(keys)),
	}
	for i, k := range keys {
		t.slots[i] = slot{key: k, keyed: true}
	}
	return t, nil
}

// Text appends trusted SQL to the current fragment. A zero Template is an
// empty query.
func (t *Template) Text(sql string) *Template {
	t.init()
	t.fragments[len(t.fragments)-1] += sql
	return t
}

// Arg appends a value slot.
func (t *Template) Arg(value any) *Template {
	t.init()
	t.slots = append(t.slots, slot{value: value})
	t.fragments = append(t.fragments, "")
	return t
}

// Args appends one value slot per value, separated by ", ".
func (t *Template) Args(values ...any) *Template {
	for i, v := range values {
		if i > 0 {
			t.Text(", ")
		}
		t.Arg(v)
	}
	return t
}

// Key appends a named slot, bound at execution time of a prepared statement.
func (t *Template) Key(name string) *Template {
	t.init()
	t.slots = append(t.slots, slot{key: name, keyed: true})
	t.fragments = append(t.fragments, "")
	return t
}

// Slots returns the number of slots.
func (t *Template) Slots() int {
	return len(t.slots)
}

// Keys returns the declared keys in slot order.
func (t *Template) Keys() []string {
	keys := make([]string, 0, len(t.slots))
	for _, s := range t.slots {
		if s.keyed {
			keys = append(keys, s.key)
		}
	}
	return keys
}

// Render joins the fragments with the dialect's placeholders and returns the
// values in slot order.
func (t *Template) Render(d dialect.Dialect) (string, []any, error) {
	if err := t.check(); err != nil {
		return "", nil, err
	}
	args := make([]any, len(t.slots))
	for i, s := range t.slots {
		if s.keyed {
			return "", nil, fmt.Errorf("%w: slot %d is %q", ErrKeyedSlot, i+1, s.key)
		}
		args[i] = s.value
	}
	return t.join(d), args, nil
}

// RenderKeyed joins the fragments with the dialect's placeholders and returns
// the keys in slot order. Every slot must be a distinct, non-empty key.
func (t *Template) RenderKeyed(d dialect.Dialect) (string, []string, error) {
	if err := t.check(); err != nil {
		return "", nil, err
	}
	keys := make([]string, len(t.slots))
	seen := make(map[string]struct{}, len(t.slots))
	for i, s := range t.slots {
		if !s.keyed {
			return "", nil, fmt.Errorf("%w: slot %d", ErrValueSlot, i+1)
		}
		if s.key == "" {
			return "", nil, fmt.Errorf("%w: slot %d", ErrEmptyKey, i+1)
		}
		if _, dup := seen[s.key]; dup {
			return "", nil, fmt.Errorf("%w: %q", ErrDuplicateKey, s.key)
		}
		seen[s.key] = struct{}{}
		keys[i] = s.key
	}
	return t.join(d), keys, nil
}

func (t *Template) init() {
	if len(t.fragments) == 0 && len(t.slots) == 0 {
		t.fragments = []string{""}
	}
}

func (t *Template) check() error {
	if len(t.fragments) == 0 && len(t.slots) == 0 {
		return nil
	}
	if len(t.fragments) != len(t.slots)+1 {
		return fmt.Errorf("%w: %d fragments, %d slots", ErrSlotMismatch, len(t.fragments), len(t.slots))
	}
	return nil
}

func (t *Template) join(d dialect.Dialect) string {
	size := 0
	for _, f := range t.fragments {
		size += len(f)
	}

	if len(t.fragments) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(size + 4*len(t.slots))
	sb.WriteString(t.fragments[0])
	for i := range t.slots {
		sb.WriteString(d.Placeholder(i + 1))
		sb.WriteString(t.fragments[i+1])
	}
	return sb.String()
}
