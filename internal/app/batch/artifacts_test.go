package batch

import (
	"path/filepath"
	"testing"
)

func TestNamerPaths(t *testing.T) {
	dir := t.TempDir()
	n := Namer{Dir: dir, Run: "nightly", Op: Import}

	checks := map[string]string{
		n.Script():           "nightly.import.cmd",
		n.CommandLog():       "nightly.import.cmd.log",
		n.Stub():             "nightly.stub.cmd",
		n.DataFile("ORDERS"): "nightly.data.ORDERS.ixf",
		n.DataLog("ORDERS"):  "nightly.data.ORDERS.import.log",
	}
	for got, want := range checks {
		if got != filepath.Join(dir, want) {
			t.Fatalf("expected %s, got %s", filepath.Join(dir, want), got)
		}
	}

	exp := Namer{Dir: dir, Run: "nightly", Op: Export}
	if exp.DataFile("ORDERS") != n.DataFile("ORDERS") {
		t.Fatalf("export and import of one run must share data files")
	}
}

func TestAwaitPath(t *testing.T) {
	items := TableItems([]string{"A", "B", "C"})
	for _, op := range opTypes {
		n := Namer{Dir: "d", Run: "r", Op: op}
		a := n.Artifacts(items)
		want := n.CommandLog()
		if op.MovesData() {
			want = n.DataLog("C")
		}
		if got := a.AwaitPath(op); got != want {
			t.Fatalf("%s: expected %s, got %s", op, want, got)
		}
	}
}
