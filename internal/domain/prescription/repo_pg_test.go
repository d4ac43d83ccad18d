package prescription

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicflow/clinicflow/internal/platform/db"
)

// recordingTx stands in for a live transaction and records every statement
// the repos issue through it. A statement containing failOn fails after
// allowFirst matching statements have succeeded. The embedded interface
// panics if the repos reach for anything beyond Exec and QueryRow.
type recordingTx struct {
	pgx.Tx

	statements []string
	failOn     string
	allowFirst int
	commits    int
	rollbacks  int
}

var errStatementFailed = errors.New("statement failed")

func (t *recordingTx) fails(sql string) bool {
	if t.failOn == "" || !strings.Contains(sql, t.failOn) {
		return false
	}
	if t.allowFirst > 0 {
		t.allowFirst--
		return false
	}
	return true
}

func (t *recordingTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	t.statements = append(t.statements, sql)
	if t.fails(sql) {
		return pgconn.CommandTag{}, errStatementFailed
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (t *recordingTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	t.statements = append(t.statements, sql)
	if t.fails(sql) {
		return fakeRow{err: errStatementFailed}
	}
	return fakeRow{}
}

func (t *recordingTx) Commit(ctx context.Context) error   { t.commits++; return nil }
func (t *recordingTx) Rollback(ctx context.Context) error { t.rollbacks++; return nil }

type fakeRow struct{ err error }

func (r fakeRow) Scan(dest ...interface{}) error { return r.err }

func (t *recordingTx) countContaining(fragment string) int {
	n := 0
	for _, s := range t.statements {
		if strings.Contains(s, fragment) {
			n++
		}
	}
	return n
}

func twoItems() []Item {
	return []Item{
		{MedicationID: uuid.New(), Dosage: "500 mg"},
		{MedicationID: uuid.New(), Dosage: "80 mg"},
	}
}

// The repos are constructed with a nil pool throughout: every statement
// must resolve to the transaction in the context, so any stray pool access
// would panic the test.

func TestRepoCreate_AllStatementsOnOneTransaction(t *testing.T) {
	tx := &recordingTx{}
	ctx := db.ContextWithTx(context.Background(), tx)

	p := &Prescription{VisitID: uuid.New(), Items: twoItems()}
	if err := NewRepoPG(nil).Create(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := tx.countContaining("INSERT INTO prescription "); got != 1 {
		t.Errorf("expected 1 header insert, got %d", got)
	}
	if got := tx.countContaining("INSERT INTO prescription_item"); got != 2 {
		t.Errorf("expected 2 item inserts, got %d", got)
	}
	if tx.commits != 0 {
		t.Errorf("commit belongs to the outermost caller, got %d commits", tx.commits)
	}
}

func TestRepoCreate_ItemInsertFailureSurfaces(t *testing.T) {
	tx := &recordingTx{failOn: "INSERT INTO prescription_item", allowFirst: 1}
	ctx := db.ContextWithTx(context.Background(), tx)

	p := &Prescription{VisitID: uuid.New(), Items: twoItems()}
	err := NewRepoPG(nil).Create(ctx, p)
	if !errors.Is(err, errStatementFailed) {
		t.Fatalf("expected the failed insert's error, got %v", err)
	}
	if tx.commits != 0 {
		t.Errorf("nothing may commit after a failed item insert, got %d commits", tx.commits)
	}
}

func TestRepoUpdate_DeleteAndReinsertShareTransaction(t *testing.T) {
	tx := &recordingTx{failOn: "INSERT INTO prescription_item"}
	ctx := db.ContextWithTx(context.Background(), tx)

	p := &Prescription{ID: uuid.New(), Items: twoItems()}
	err := NewRepoPG(nil).Update(ctx, uuid.New(), p)
	if !errors.Is(err, errStatementFailed) {
		t.Fatalf("expected the failed insert's error, got %v", err)
	}

	// The item delete ran, but on the same uncommitted transaction, so the
	// caller's rollback restores the previous items.
	if got := tx.countContaining("DELETE FROM prescription_item"); got != 1 {
		t.Errorf("expected 1 item delete, got %d", got)
	}
	if tx.commits != 0 {
		t.Errorf("nothing may commit after a failed reinsert, got %d commits", tx.commits)
	}
}

func TestTemplateRepoCreate_AllStatementsOnOneTransaction(t *testing.T) {
	tx := &recordingTx{}
	ctx := db.ContextWithTx(context.Background(), tx)

	tpl := &Template{
		Name:  "Uncomplicated malaria",
		Items: []TemplateItem{{MedicationID: uuid.New(), Dosage: "4 tabs"}},
	}
	if err := NewTemplateRepoPG(nil).Create(ctx, tpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := tx.countContaining("INSERT INTO prescription_template "); got != 1 {
		t.Errorf("expected 1 header insert, got %d", got)
	}
	if got := tx.countContaining("INSERT INTO prescription_template_item"); got != 1 {
		t.Errorf("expected 1 item insert, got %d", got)
	}
	if tx.commits != 0 {
		t.Errorf("commit belongs to the outermost caller, got %d commits", tx.commits)
	}
}

func TestTemplateRepoUpdate_FailedReinsertDoesNotCommitDelete(t *testing.T) {
	tx := &recordingTx{failOn: "INSERT INTO prescription_template_item"}
	ctx := db.ContextWithTx(context.Background(), tx)

	tpl := &Template{
		ID:    uuid.New(),
		Name:  "Uncomplicated malaria",
		Items: []TemplateItem{{MedicationID: uuid.New(), Dosage: "4 tabs"}},
	}
	err := NewTemplateRepoPG(nil).Update(ctx, tpl)
	if !errors.Is(err, errStatementFailed) {
		t.Fatalf("expected the failed insert's error, got %v", err)
	}

	if got := tx.countContaining("DELETE FROM prescription_template_item"); got != 1 {
		t.Errorf("expected 1 item delete, got %d", got)
	}
	if tx.commits != 0 {
		t.Errorf("the item delete must not commit when the reinsert fails, got %d commits", tx.commits)
	}
}
