// Package trace implements an opt-in recorder of virtual-machine execution,
// grounded on the teacher's internal/database (sql.Open against a
// modernc.org/sqlite handle, schema created with a plain CREATE TABLE IF
// NOT EXISTS) and internal/reporting-style human-readable summaries built
// with github.com/dustin/go-humanize. Unlike the teacher's security-testing
// database module, this one has exactly one table and one writer: the VM's
// dispatch loop, recording what it did rather than probing anything
// external.
package trace

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"corelang/internal/bytecode"
	"corelang/internal/value"
)

// Recorder captures one instruction row per dispatched opcode against a
// sqlite-backed store. The zero value is not usable; construct with Open.
type Recorder struct {
	db      *sql.DB
	runID   string
	started time.Time
	count   int64
}

// Open creates (or reuses) the instructions table at path and starts a new
// run, tagged with a fresh github.com/google/uuid run ID. Use ":memory:"
// for tests.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS instructions (
	run_id      TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	pc          INTEGER NOT NULL,
	opcode      TEXT NOT NULL,
	stack_depth INTEGER NOT NULL,
	r0 TEXT, r1 TEXT, r2 TEXT, r3 TEXT,
	ts_unix_nano INTEGER NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: create schema: %w", err)
	}
	return &Recorder{db: db, runID: uuid.NewString(), started: time.Now()}, nil
}

// Close releases the underlying database handle.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// RunID is this recorder's github.com/google/uuid run identifier.
func (r *Recorder) RunID() string { return r.runID }

// OnInstr implements vm.Tracer: called once per dispatched instruction with
// the program counter it decoded from, the opcode, a register-file
// snapshot, and the call stack's current depth.
func (r *Recorder) OnInstr(pc int, op bytecode.OpCode, regs [bytecode.RegisterCount]value.Value, stackDepth int) {
	r.count++
	regStrs := make([]string, bytecode.RegisterCount)
	for i, v := range regs {
		regStrs[i] = value.Format(v)
	}
	_, _ = r.db.Exec(
		`INSERT INTO instructions (run_id, seq, pc, opcode, stack_depth, r0, r1, r2, r3, ts_unix_nano) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID, r.count, pc, op.String(), stackDepth,
		regStrs[0], regStrs[1], regStrs[2], regStrs[3],
		time.Now().UnixNano(),
	)
}

// Summary returns a human-readable report of the run so far, formatting
// counts and elapsed time with github.com/dustin/go-humanize.
func (r *Recorder) Summary() string {
	elapsed := time.Since(r.started)
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s: %s instructions in %s (started %s)\n",
		r.runID, humanize.Comma(r.count), elapsed.Round(time.Microsecond), humanize.Time(r.started))

	rows, err := r.db.Query(
		`SELECT opcode, COUNT(*) FROM instructions WHERE run_id = ? GROUP BY opcode ORDER BY COUNT(*) DESC`,
		r.runID,
	)
	if err != nil {
		return sb.String()
	}
	defer rows.Close()
	for rows.Next() {
		var op string
		var n int64
		if rows.Scan(&op, &n) != nil {
			break
		}
		fmt.Fprintf(&sb, "  %-10s %s\n", op, humanize.Comma(n))
	}
	return sb.String()
}
