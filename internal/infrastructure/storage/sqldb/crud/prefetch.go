package crud

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"adminnext/internal/core/apperror"
	"adminnext/internal/metadata"
)

// prefetch loads the named relations for rows with one IN query per relation.
// Many-to-one relations attach a Row (or nil), one-to-many relations attach []Row.
func (g *Generator) prefetch(ctx context.Context, rows []metadata.Row, names []string) error {
	for _, name := range names {
		rel, ok := g.table.Relation(name)
		if !ok {
			return apperror.NewInvalidFilter(fmt.Sprintf("unknown relation %q", name)).
				WithDetail("relation", name)
		}
		target, err := g.target(rel.Target)
		if err != nil {
			return err
		}

		switch rel.Kind {
		case metadata.ManyToOne:
			err = g.prefetchParent(ctx, rows, rel, target)
		case metadata.OneToMany:
			err = g.prefetchChildren(ctx, rows, rel, target)
		}
		if err != nil {
			return fmt.Errorf("prefetch %s.%s: %w", g.table.Name, rel.Name, err)
		}
	}
	return nil
}

func (g *Generator) prefetchParent(ctx context.Context, rows []metadata.Row, rel metadata.Relation, target *metadata.Table) error {
	remote := rel.RemoteColumn
	if remote == "" {
		remote = target.PrimaryKeyName()
	}

	parents := make(map[string]metadata.Row)
	if keys := collectKeys(rows, rel.LocalColumn); len(keys) > 0 {
		tg := New(target, g.sess, g.resolver)
		related, err := tg.selectRows(ctx, tg.baseSelect().Where(squirrel.Eq{remote: keys}))
		if err != nil {
			return err
		}
		for _, r := range related {
			parents[keyOf(r[remote])] = r
		}
	}

	for _, row := range rows {
		var parent metadata.Row
		if v := row[rel.LocalColumn]; v != nil {
			parent = parents[keyOf(v)]
		}
		row[rel.Name] = parent
	}
	return nil
}

func (g *Generator) prefetchChildren(ctx context.Context, rows []metadata.Row, rel metadata.Relation, target *metadata.Table) error {
	children := make(map[string][]metadata.Row)
	if keys := collectKeys(rows, rel.LocalColumn); len(keys) > 0 {
		tg := New(target, g.sess, g.resolver)
		related, err := tg.selectRows(ctx, tg.baseSelect().
			Where(squirrel.Eq{rel.RemoteColumn: keys}).
			OrderBy(target.PrimaryKeyName()+" ASC"))
		if err != nil {
			return err
		}
		for _, r := range related {
			k := keyOf(r[rel.RemoteColumn])
			children[k] = append(children[k], r)
		}
	}

	for _, row := range rows {
		list := children[keyOf(row[rel.LocalColumn])]
		if list == nil {
			list = []metadata.Row{}
		}
		row[rel.Name] = list
	}
	return nil
}

// collectKeys returns the distinct non-null values of column.
func collectKeys(rows []metadata.Row, column string) []any {
	seen := make(map[string]struct{}, len(rows))
	keys := make([]any, 0, len(rows))
	for _, row := range rows {
		v := row[column]
		if v == nil {
			continue
		}
		k := keyOf(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, v)
	}
	return keys
}

// keyOf normalizes values for map lookups (int64(1) and int(1) match).
func keyOf(v any) string {
	return fmt.Sprint(v)
}
