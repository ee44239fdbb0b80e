package storage

import (
	"fmt"
	"strings"

	"github.com/bull/logsearch/internal/schema"
)

// statements holds the SQL derived from a schema.
type statements struct {
	create  []string
	drop    []string
	insert  string
	columns []string // select list, prefixed with the "d." alias
}

func buildStatements(s *schema.Schema) statements {
	table, fts := s.Table(), s.FTSTable()

	var (
		defs     []string
		cols     []string
		selected []string
		textCols []string
		indexes  []string
	)
	for _, f := range s.Fields() {
		cols = append(cols, f.Column)
		selected = append(selected, "d."+f.Column)
		switch f.Kind {
		case schema.KindID:
			defs = append(defs, f.Column+" INTEGER PRIMARY KEY")
		case schema.KindTime:
			defs = append(defs, f.Column+" INTEGER")
		case schema.KindText:
			defs = append(defs, f.Column+" TEXT NOT NULL")
			textCols = append(textCols, f.Column)
		default:
			defs = append(defs, f.Column+" TEXT NOT NULL")
		}
		if f.Filterable {
			collate := ""
			if f.FoldCase {
				collate = " COLLATE NOCASE"
			}
			indexes = append(indexes, fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s%s)", table, f.Column, table, f.Column, collate))
		}
	}

	idCol := s.Fields()[0].Column
	newVals := prefixed("new.", textCols)
	oldVals := prefixed("old.", textCols)
	textList := strings.Join(textCols, ", ")

	create := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(defs, ",\n\t")),
	}
	create = append(create, indexes...)
	create = append(create,
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(
	%s,
	content='%s',
	content_rowid='%s',
	tokenize='porter unicode61'
)`, fts, textList, table, idCol),
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_ai AFTER INSERT ON %s BEGIN
	INSERT INTO %s(rowid, %s) VALUES (new.%s, %s);
END`, table, table, fts, textList, idCol, newVals),
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_ad AFTER DELETE ON %s BEGIN
	INSERT INTO %s(%s, rowid, %s) VALUES ('delete', old.%s, %s);
END`, table, table, fts, fts, textList, idCol, oldVals),
		`CREATE TABLE IF NOT EXISTS index_info (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`,
	)

	drop := []string{
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s_ai", table),
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s_ad", table),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", fts),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", table),
		"DROP TABLE IF EXISTS index_info",
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders)

	return statements{
		create:  create,
		drop:    drop,
		insert:  insert,
		columns: selected,
	}
}

func prefixed(prefix string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + c
	}
	return strings.Join(out, ", ")
}
