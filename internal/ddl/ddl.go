// Package ddl reads CREATE TABLE statements into the raw schema form the
// pipeline consumes.
package ddl

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tordrt/schemagraph/internal/model"
)

// ErrNoTables is returned when the input holds no CREATE TABLE statement.
var ErrNoTables = errors.New("no CREATE TABLE statements found")

var (
	lineComment = regexp.MustCompile(`--[^\n]*`)
	createTable = regexp.MustCompile("(?i)\\bCREATE\\s+(?:TEMP(?:ORARY)?\\s+)?TABLE\\s+(?:IF\\s+NOT\\s+EXISTS\\s+)?([\\w.\"`\\[\\]]+)\\s*\\(")
	typeWord    = regexp.MustCompile(`^\w+`)

	tableForeignKey = regexp.MustCompile("(?i)^(?:CONSTRAINT\\s+\\S+\\s+)?FOREIGN\\s+KEY\\s*\\(([^)]*)\\)\\s*REFERENCES\\s+([\\w.\"`\\[\\]]+)")
	tablePrimaryKey = regexp.MustCompile(`(?i)^(?:CONSTRAINT\s+\S+\s+)?PRIMARY\s+KEY\s*\(([^)]*)\)`)

	primaryKey    = regexp.MustCompile(`(?i)\bPRIMARY\s+KEY\b`)
	notNull       = regexp.MustCompile(`(?i)\bNOT\s+NULL\b`)
	unique        = regexp.MustCompile(`(?i)\bUNIQUE\b`)
	autoIncrement = regexp.MustCompile(`(?i)\b(?:AUTO_INCREMENT|AUTOINCREMENT)\b`)
	defaultValue  = regexp.MustCompile(`(?i)\bDEFAULT\s+('(?:[^']|'')*'|\S+)`)
	check         = regexp.MustCompile(`(?i)\bCHECK\s*\(`)
	references    = regexp.MustCompile("(?i)\\bREFERENCES\\s+([\\w.\"`\\[\\]]+)")
)

var tableConstraintPrefixes = []string{"PRIMARY KEY", "FOREIGN KEY", "CONSTRAINT", "UNIQUE", "CHECK"}

// Parse extracts every CREATE TABLE statement from sql. Table and column names
// are lowercased; a repeated table or column keeps its first definition.
func Parse(sql string) (model.RawSchema, error) {
	sql = lineComment.ReplaceAllString(sql, "")

	var raw model.RawSchema
	seen := map[string]bool{}

	for _, loc := range createTable.FindAllStringSubmatchIndex(sql, -1) {
		name := identifier(sql[loc[2]:loc[3]])
		body, ok := balanced(sql, loc[1]-1)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		raw.Tables = append(raw.Tables, parseTable(name, body))
	}

	if len(raw.Tables) == 0 {
		return model.RawSchema{}, ErrNoTables
	}
	return raw, nil
}

func parseTable(name, body string) model.RawTable {
	table := model.RawTable{Name: name, Columns: []model.RawColumn{}}

	var tableLevel []string
	var columns []column
	index := map[string]int{}

	for _, def := range splitTopLevel(body) {
		if isTableConstraint(def) {
			tableLevel = append(tableLevel, def)
			continue
		}
		c, ok := parseColumn(def)
		if !ok {
			continue
		}
		if _, dup := index[c.name]; dup {
			continue
		}
		index[c.name] = len(columns)
		columns = append(columns, c)
	}

	for _, def := range tableLevel {
		if m := tablePrimaryKey.FindStringSubmatch(def); m != nil {
			for _, col := range splitList(m[1]) {
				if i, ok := index[col]; ok && !columns[i].has("PRIMARY KEY") {
					columns[i].constraints = append([]string{"PRIMARY KEY"}, columns[i].constraints...)
				}
			}
			continue
		}
		if m := tableForeignKey.FindStringSubmatch(def); m != nil {
			target := identifier(m[2])
			for _, col := range splitList(m[1]) {
				if i, ok := index[col]; ok && !columns[i].has("FOREIGN KEY") {
					columns[i].constraints = append(columns[i].constraints, "FOREIGN KEY REFERENCES "+target)
				}
			}
		}
	}

	for _, c := range columns {
		table.Columns = append(table.Columns, model.RawColumn{
			Name:        c.name,
			Type:        c.typ,
			Constraints: c.constraints,
		})
	}
	return table
}

type column struct {
	name        string
	typ         string
	constraints []string
}

func (c column) has(marker string) bool {
	for _, s := range c.constraints {
		if strings.Contains(strings.ToUpper(s), marker) {
			return true
		}
	}
	return false
}

func parseColumn(def string) (column, bool) {
	fields := strings.Fields(def)
	if len(fields) == 0 {
		return column{}, false
	}
	c := column{name: identifier(fields[0]), constraints: []string{}}

	rest := strings.TrimSpace(def[strings.Index(def, fields[0])+len(fields[0]):])
	if w := typeWord.FindString(rest); w != "" {
		c.typ = w
		rest = rest[len(w):]
		if trimmed := strings.TrimLeft(rest, " \t\r\n"); strings.HasPrefix(trimmed, "(") {
			if args, ok := balanced(trimmed, 0); ok {
				c.typ += "(" + compact(args) + ")"
				rest = trimmed[len(args)+2:]
			}
		}
	}

	if primaryKey.MatchString(rest) {
		c.constraints = append(c.constraints, "PRIMARY KEY")
	}
	if notNull.MatchString(rest) {
		c.constraints = append(c.constraints, "NOT NULL")
	}
	if unique.MatchString(rest) {
		c.constraints = append(c.constraints, "UNIQUE")
	}
	if autoIncrement.MatchString(rest) || strings.HasSuffix(strings.ToUpper(c.typ), "SERIAL") {
		c.constraints = append(c.constraints, "AUTO_INCREMENT")
	}
	if m := defaultValue.FindStringSubmatch(rest); m != nil {
		c.constraints = append(c.constraints, "DEFAULT "+m[1])
	}
	if loc := check.FindStringIndex(rest); loc != nil {
		if expr, ok := balanced(rest, loc[1]-1); ok {
			c.constraints = append(c.constraints, "CHECK("+compact(expr)+")")
		}
	}
	if m := references.FindStringSubmatch(rest); m != nil {
		c.constraints = append(c.constraints, "FOREIGN KEY REFERENCES "+identifier(m[1]))
	}
	return c, true
}

func isTableConstraint(def string) bool {
	upper := strings.ToUpper(compact(def))
	for _, p := range tableConstraintPrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

// balanced returns the text between the '(' at open and its matching ')'.
func balanced(s string, open int) (string, bool) {
	if open < 0 || open >= len(s) || s[open] != '(' {
		return "", false
	}
	depth := 0
	inQuote := false
	for i := open; i < len(s); i++ {
		switch ch := s[i]; {
		case ch == '\'':
			inQuote = !inQuote
		case inQuote:
		case ch == '(':
			depth++
		case ch == ')':
			depth--
			if depth == 0 {
				return s[open+1 : i], true
			}
		}
	}
	return "", false
}

// splitTopLevel splits on commas outside parentheses and string literals.
func splitTopLevel(body string) []string {
	var parts []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(body); i++ {
		switch ch := body[i]; {
		case ch == '\'':
			inQuote = !inQuote
		case inQuote:
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case ch == ',' && depth == 0:
			if p := strings.TrimSpace(body[start:i]); p != "" {
				parts = append(parts, p)
			}
			start = i + 1
		}
	}
	if p := strings.TrimSpace(body[start:]); p != "" {
		parts = append(parts, p)
	}
	return parts
}

func splitList(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := identifier(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// identifier unquotes a possibly schema-qualified name and lowercases it.
func identifier(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Trim(s, "\"`[]")
	return strings.ToLower(s)
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
