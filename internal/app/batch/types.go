package batch

import "strings"

// Conn describes how the command line processor reaches a database.
type Conn struct {
	Database string
	Alias    string
	User     string
	Password string
	Profile  string // shell profile sourced before the tool runs (non-windows)
}

// Target returns the name used in the connect statement.
func (c Conn) Target(useAlias bool) string {
	if useAlias && c.Alias != "" {
		return c.Alias
	}
	return c.Database
}

type OpType string

const (
	Export   OpType = "export"
	Import   OpType = "import"
	RunStats OpType = "runstats"
	Reorg    OpType = "reorg"
	Truncate OpType = "truncate"
	Raw      OpType = "raw"
)

var opTypes = []OpType{Export, Import, RunStats, Reorg, Truncate, Raw}

// ParseOpType accepts any casing of a known operation name.
func ParseOpType(s string) (OpType, error) {
	for _, t := range opTypes {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", validationErr("invalid type: %s", s)
}

// MovesData reports whether the operation reads or writes per-item data files.
func (t OpType) MovesData() bool { return t == Export || t == Import }

// WorkItem is one named unit of the script. For table operations Name and
// Statement are both the table name.
type WorkItem struct {
	Name      string
	Statement string
}

// TableItems turns a table list into items where name == statement.
func TableItems(tables []string) []WorkItem {
	items := make([]WorkItem, 0, len(tables))
	for _, t := range tables {
		items = append(items, WorkItem{Name: t, Statement: t})
	}
	return items
}

type Privileges struct {
	Select, Insert, Update, Delete bool
}

// GrantItems expands tables into raw GRANT statements, one per selected privilege.
func GrantItems(tables []string, grantee string, p Privileges) []WorkItem {
	var items []WorkItem
	for _, t := range tables {
		for _, priv := range []struct {
			on   bool
			name string
		}{
			{p.Select, "SELECT"},
			{p.Insert, "INSERT"},
			{p.Update, "UPDATE"},
			{p.Delete, "DELETE"},
		} {
			if !priv.on {
				continue
			}
			items = append(items, WorkItem{
				Name:      t + "." + priv.name,
				Statement: "GRANT " + priv.name + " ON TABLE " + t + " TO " + grantee + " WITH GRANT OPTION;",
			})
		}
	}
	return items
}
