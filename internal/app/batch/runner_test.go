package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const okLog = "connect to SAMPLE\nDB20000I  The SQL command completed successfully.\n\nDB20000I  " + TerminateMarker + ".\n"

// fakeTool stands in for the command line processor. It writes the files
// the real tool would write when launched.
type fakeTool struct {
	code     int
	cmdLog   string // written to the command log unless empty
	launched int
	inv      Invocation
	onLaunch func(inv Invocation)
}

func (f *fakeTool) Launch(_ context.Context, inv Invocation) (Launch, error) {
	f.launched++
	f.inv = inv
	if f.onLaunch != nil {
		f.onLaunch(inv)
	}
	if f.code != 0 {
		return Launch{ExitCode: f.code, Command: inv.Stub, Stub: inv.Stub}, nil
	}
	if err := os.WriteFile(inv.Stub, []byte("stub\n"), 0o744); err != nil {
		return Launch{}, err
	}
	if f.cmdLog != "" {
		if err := os.WriteFile(inv.Log, []byte(f.cmdLog), 0o600); err != nil {
			return Launch{}, err
		}
	}
	return Launch{Command: inv.Stub, Stub: inv.Stub}, nil
}

type sleepCounter struct {
	calls  int
	onCall func(n int)
}

func (s *sleepCounter) sleep(ctx context.Context, _ time.Duration) error {
	s.calls++
	if s.onCall != nil {
		s.onCall(s.calls)
	}
	return ctx.Err()
}

func newTestRunner(tool Launcher, sc *sleepCounter) *Runner {
	r := NewRunner(tool, nil)
	r.Waiter = Waiter{Sleep: sc.sleep}
	return r
}

func writeDataArtifacts(t *testing.T, n Namer, items []WorkItem, files bool) {
	t.Helper()
	for _, it := range items {
		if files {
			if err := os.WriteFile(n.DataFile(it.Name), []byte("IXF"), 0o600); err != nil {
				t.Fatalf("write data file: %v", err)
			}
		}
		if err := os.WriteFile(n.DataLog(it.Name), []byte("SQL3104N"), 0o600); err != nil {
			t.Fatalf("write data log: %v", err)
		}
	}
}

func TestRunCleanupPerOperation(t *testing.T) {
	items := []WorkItem{{Name: "A", Statement: "select * from A"}, {Name: "B", Statement: "select * from B"}}
	for _, op := range opTypes {
		t.Run(string(op), func(t *testing.T) {
			dir := t.TempDir()
			n := Namer{Dir: dir, Run: "r", Op: op}
			tool := &fakeTool{cmdLog: okLog}
			tool.onLaunch = func(Invocation) {
				if op.MovesData() {
					writeDataArtifacts(t, n, items, true)
				}
			}
			sc := &sleepCounter{}

			res, err := newTestRunner(tool, sc).Run(context.Background(), Request{Op: op, Dir: dir, Run: "r", Items: items})
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if fileExists(n.Script()) {
				t.Fatalf("command script was not removed")
			}
			if fileExists(n.Stub()) {
				t.Fatalf("stub script was not removed")
			}
			for _, it := range items {
				kept := fileExists(n.DataFile(it.Name))
				if op == Export && !kept {
					t.Fatalf("export data file %s was removed", it.Name)
				}
				if op != Export && kept {
					t.Fatalf("data file %s was not removed after %s", it.Name, op)
				}
			}
			if op == Export && len(res.Kept) != 2 {
				t.Fatalf("expected 2 kept files, got %v", res.Kept)
			}
			if !strings.Contains(res.CommandLog, TerminateMarker) {
				t.Fatalf("result does not carry the command log")
			}
		})
	}
}

func TestRunStaleDataFiles(t *testing.T) {
	items := []WorkItem{{Name: "A", Statement: "select * from A"}}
	tests := []struct {
		op         OpType
		wantExists bool
	}{
		{Export, false},
		{Import, true},
		{Truncate, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			dir := t.TempDir()
			n := Namer{Dir: dir, Run: "r", Op: tt.op}
			if err := os.WriteFile(n.DataFile("A"), []byte("old"), 0o600); err != nil {
				t.Fatalf("seed data file: %v", err)
			}
			if err := os.WriteFile(n.CommandLog(), []byte(okLog), 0o600); err != nil {
				t.Fatalf("seed command log: %v", err)
			}

			tool := &fakeTool{code: 1}
			tool.onLaunch = func(Invocation) {
				if got := fileExists(n.DataFile("A")); got != tt.wantExists {
					t.Fatalf("data file exists at launch = %v, want %v", got, tt.wantExists)
				}
				if fileExists(n.CommandLog()) {
					t.Fatalf("stale command log was not removed")
				}
			}
			_, _ = newTestRunner(tool, &sleepCounter{}).Run(context.Background(), Request{Op: tt.op, Dir: dir, Run: "r", Items: items})
			if tool.launched != 1 {
				t.Fatalf("expected one launch, got %d", tool.launched)
			}
		})
	}
}

func TestRunScriptMatchesBuilder(t *testing.T) {
	dir := t.TempDir()
	tool := &fakeTool{code: 4}
	var script string
	tool.onLaunch = func(inv Invocation) {
		b, err := os.ReadFile(inv.Script)
		if err != nil {
			t.Fatalf("read script: %v", err)
		}
		script = string(b)
	}
	conn := Conn{Database: "SAMPLE", User: "u", Password: "p"}
	_, _ = newTestRunner(tool, &sleepCounter{}).Run(context.Background(), Request{
		Op: Truncate, Dir: dir, Run: "r", Conn: conn, Items: TableItems([]string{"CUSTOMERS", "ORDERS"}),
	})

	want := "connect to SAMPLE user u using \"p\";\n\nTRUNCATE TABLE CUSTOMERS IMMEDIATE;\nCOMMIT;\n\n" +
		"TRUNCATE TABLE ORDERS IMMEDIATE;\nCOMMIT;\n\nconnect reset;\nterminate;\n"
	if script != want {
		t.Fatalf("unexpected script:\n%s", script)
	}
	if tool.inv.WorkDir != dir || tool.inv.Conn != conn {
		t.Fatalf("unexpected invocation: %+v", tool.inv)
	}
}

func TestRunConnectFailure(t *testing.T) {
	dir := t.TempDir()
	failLog := "SQL1013N  The database alias name or database name \"SAMPLE\" could not be found.\n"
	tool := &fakeTool{cmdLog: failLog}
	sc := &sleepCounter{}

	_, err := newTestRunner(tool, sc).Run(context.Background(), Request{
		Op: Export, Dir: dir, Run: "r", Items: []WorkItem{{Name: "A", Statement: "select * from A"}},
	})
	if !errors.Is(err, ErrInfrastructure) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
	if !strings.Contains(err.Error(), "SQL1013N") {
		t.Fatalf("error does not carry the log contents: %v", err)
	}
	if sc.calls != 0 {
		t.Fatalf("expected no polling after the failure signature, slept %d times", sc.calls)
	}
	if !fileExists(filepath.Join(dir, "r.export.cmd")) {
		t.Fatalf("artifacts must be kept on failure")
	}
}

func TestRunConnectFailureWhilePolling(t *testing.T) {
	dir := t.TempDir()
	n := Namer{Dir: dir, Run: "r", Op: Import}
	tool := &fakeTool{}
	sc := &sleepCounter{}
	sc.onCall = func(call int) {
		if call == 3 {
			_ = os.WriteFile(n.CommandLog(), []byte("SQL1013N  could not be found.\n"), 0o600)
		}
	}

	_, err := newTestRunner(tool, sc).Run(context.Background(), Request{
		Op: Import, Dir: dir, Run: "r", Items: []WorkItem{{Name: "A", Statement: "insert into A"}},
	})
	if !errors.Is(err, ErrInfrastructure) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
	if sc.calls != 3 {
		t.Fatalf("expected polling to stop after 3 sleeps, got %d", sc.calls)
	}
}

func TestRunCancelledWhilePolling(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sc := &sleepCounter{}
	sc.onCall = func(call int) {
		if call == 5 {
			cancel()
		}
	}

	_, err := newTestRunner(&fakeTool{}, sc).Run(ctx, Request{Op: RunStats, Dir: dir, Run: "r", Items: TableItems([]string{"T"})})
	if !errors.Is(err, ErrProcessing) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled processing error, got %v", err)
	}
	if sc.calls != 5 {
		t.Fatalf("expected 5 polls before cancel, got %d", sc.calls)
	}
}

func TestRunWaitsForLastDataLog(t *testing.T) {
	dir := t.TempDir()
	n := Namer{Dir: dir, Run: "r", Op: Import}
	items := []WorkItem{{Name: "A", Statement: "insert into A"}, {Name: "B", Statement: "insert into B"}}
	tool := &fakeTool{cmdLog: "import running\n"}
	sc := &sleepCounter{}
	sc.onCall = func(call int) {
		switch call {
		case 2:
			_ = os.WriteFile(n.DataLog("A"), nil, 0o600)
		case 4:
			_ = os.WriteFile(n.DataLog("B"), nil, 0o600)
			_ = os.WriteFile(n.CommandLog(), []byte(okLog), 0o600)
		}
	}

	if _, err := newTestRunner(tool, sc).Run(context.Background(), Request{Op: Import, Dir: dir, Run: "r", Items: items}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if sc.calls != 4 {
		t.Fatalf("expected 4 polls, got %d", sc.calls)
	}
}

func TestRunWarningMarker(t *testing.T) {
	dir := t.TempDir()
	tool := &fakeTool{cmdLog: "SQL3107W  " + WarningMarker + ".\n" + okLog}
	_, err := newTestRunner(tool, &sleepCounter{}).Run(context.Background(), Request{
		Op: Reorg, Dir: dir, Run: "r", Items: TableItems([]string{"T"}),
	})
	if !errors.Is(err, ErrProcessing) {
		t.Fatalf("expected processing error, got %v", err)
	}
	if !strings.Contains(err.Error(), "warning in message file") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fileExists(filepath.Join(dir, "r.reorg.cmd")) {
		t.Fatalf("cleanup must not run on failure")
	}
}

func TestRunLogNeverTerminates(t *testing.T) {
	dir := t.TempDir()
	tool := &fakeTool{cmdLog: "DB20000I  The SQL command completed successfully.\n"}
	sc := &sleepCounter{}
	r := newTestRunner(tool, sc)

	_, err := r.Run(context.Background(), Request{Op: RunStats, Dir: dir, Run: "r", Items: TableItems([]string{"T"})})
	if !errors.Is(err, ErrProcessing) || !strings.Contains(err.Error(), "has not completed") {
		t.Fatalf("expected incomplete log error, got %v", err)
	}
	if sc.calls != r.Timing.MaxChecks+1 {
		t.Fatalf("expected %d re-checks, got %d", r.Timing.MaxChecks+1, sc.calls)
	}
}

func TestRunNonzeroExit(t *testing.T) {
	dir := t.TempDir()
	tool := &fakeTool{code: 8}
	sc := &sleepCounter{}
	_, err := newTestRunner(tool, sc).Run(context.Background(), Request{
		Op: RunStats, Dir: dir, Run: "r", Items: TableItems([]string{"T"}),
	})
	if !errors.Is(err, ErrProcessing) || !strings.Contains(err.Error(), "returned 8") {
		t.Fatalf("expected processing error for exit code, got %v", err)
	}
	if sc.calls != 0 {
		t.Fatalf("no polling expected after a failed launch")
	}
	if !fileExists(filepath.Join(dir, "r.runstats.cmd")) {
		t.Fatalf("script must be left for diagnosis")
	}
}

func TestRunInvalidType(t *testing.T) {
	dir := t.TempDir()
	tool := &fakeTool{}
	_, err := newTestRunner(tool, &sleepCounter{}).Run(context.Background(), Request{
		Op: OpType("bogus"), Dir: dir, Run: "r", Items: TableItems([]string{"T"}),
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 || tool.launched != 0 {
		t.Fatalf("no files or launches expected, got %d entries and %d launches", len(entries), tool.launched)
	}
}
