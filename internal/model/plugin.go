package model

import (
	"fmt"
	"strings"

	"github.com/nerrad567/docbind/internal/database"
	"github.com/nerrad567/docbind/internal/driver"
)

// Plugin kinds accepted by ParsePlugin.
const (
	KindIndex  = "index"
	KindUnique = "unique"
)

// Ensure IndexPlugin implements the plugin interfaces at compile time.
var (
	_ database.Plugin = IndexPlugin{}
	_ Applier         = IndexPlugin{}
)

// IndexPlugin adds a single-field index to every model it is applied to.
type IndexPlugin struct {
	Field      string
	Unique     bool
	Descending bool
}

// Name returns "index:<field>" or "unique:<field>", with a leading "-" on
// the field for descending indexes.
func (p IndexPlugin) Name() string {
	kind := KindIndex
	if p.Unique {
		kind = KindUnique
	}
	field := p.Field
	if p.Descending {
		field = "-" + field
	}
	return kind + ":" + field
}

// Apply records the index on m.
func (p IndexPlugin) Apply(m *Base) error {
	if err := driver.ValidateName(p.Field); err != nil {
		return err
	}
	m.AddIndex(driver.IndexSpec{
		Field:      p.Field,
		Unique:     p.Unique,
		Descending: p.Descending,
	})
	return nil
}

// ParsePlugin builds a plugin from its configuration form.
//
// Accepted forms:
//
//	index:<field>     ascending index
//	index:-<field>    descending index
//	unique:<field>    unique index (also accepts -<field>)
//
// Returns:
//   - database.Plugin: The parsed plugin
//   - error: ErrInvalidPlugin for an unknown kind or invalid field
func ParsePlugin(spec string) (database.Plugin, error) {
	kind, field, ok := strings.Cut(strings.TrimSpace(spec), ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlugin, spec)
	}

	p := IndexPlugin{}
	switch kind {
	case KindIndex:
	case KindUnique:
		p.Unique = true
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidPlugin, kind)
	}

	if rest, desc := strings.CutPrefix(field, "-"); desc {
		field = rest
		p.Descending = true
	}
	if err := driver.ValidateName(field); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlugin, err)
	}
	p.Field = field
	return p, nil
}
