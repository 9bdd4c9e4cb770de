package batch

import "fmt"

const DefaultCommitCount = 20000

// BuildScript renders the command script for items in order. It is pure;
// see Runner.prepare for the file side effects.
func BuildScript(op OpType, n Namer, conn Conn, useAlias bool, items []WorkItem, commitCount int) ([]string, error) {
	if _, err := ParseOpType(string(op)); err != nil {
		return nil, err
	}
	if commitCount <= 0 {
		commitCount = DefaultCommitCount
	}

	lines := []string{
		fmt.Sprintf("connect to %s user %s using \"%s\";", conn.Target(useAlias), conn.User, conn.Password),
		"",
	}
	for _, it := range items {
		data, dataLog := n.DataFile(it.Name), n.DataLog(it.Name)
		switch op {
		case Export:
			lines = append(lines, fmt.Sprintf("export to %s of ixf messages %s %s;", data, dataLog, it.Statement))
		case Import:
			lines = append(lines, fmt.Sprintf("import from %s of ixf commitcount %d messages %s %s;", data, commitCount, dataLog, it.Statement))
		case RunStats:
			lines = append(lines, "RUNSTATS ON TABLE "+it.Name+" ON KEY COLUMNS WITH DISTRIBUTION ON ALL COLUMNS AND INDEX ALL ALLOW READ ACCESS;")
		case Reorg:
			lines = append(lines, "REORG TABLE "+it.Name+" ALLOW READ ACCESS;")
		case Truncate:
			lines = append(lines, "TRUNCATE TABLE "+it.Name+" IMMEDIATE;", "COMMIT;")
		case Raw:
			lines = append(lines, it.Statement)
		}
		lines = append(lines, "")
	}
	return append(lines, "connect reset;", "terminate;"), nil
}
