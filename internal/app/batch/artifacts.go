package batch

import "path/filepath"

// Namer derives the file names shared with the command line processor.
// All names are deterministic in (Dir, Run, Op).
type Namer struct {
	Dir string
	Run string
	Op  OpType
}

func (n Namer) Script() string     { return n.path(n.Run + "." + string(n.Op) + ".cmd") }
func (n Namer) CommandLog() string { return n.path(n.Run + "." + string(n.Op) + ".cmd.log") }
func (n Namer) Stub() string       { return n.path(n.Run + ".stub.cmd") }

// DataFile is the IXF file for an item. It does not depend on the
// operation so an import finds what an export of the same run produced.
func (n Namer) DataFile(item string) string {
	return n.path(n.Run + ".data." + item + ".ixf")
}

func (n Namer) DataLog(item string) string {
	return n.path(n.Run + ".data." + item + "." + string(n.Op) + ".log")
}

func (n Namer) path(name string) string { return filepath.Join(n.Dir, name) }

// Artifacts is the resolved file set of one run.
type Artifacts struct {
	Script     string
	CommandLog string
	Stub       string // empty when the launcher does not need one
	DataFiles  []string
	DataLogs   []string
}

// Artifacts resolves the file set for items in order.
func (n Namer) Artifacts(items []WorkItem) Artifacts {
	a := Artifacts{
		Script:     n.Script(),
		CommandLog: n.CommandLog(),
	}
	for _, it := range items {
		a.DataFiles = append(a.DataFiles, n.DataFile(it.Name))
		a.DataLogs = append(a.DataLogs, n.DataLog(it.Name))
	}
	return a
}

// AwaitPath is the file whose appearance marks the tool as finished: the
// last item's data log for export/import, the command log otherwise.
func (a Artifacts) AwaitPath(op OpType) string {
	if op.MovesData() && len(a.DataLogs) > 0 {
		return a.DataLogs[len(a.DataLogs)-1]
	}
	return a.CommandLog
}
