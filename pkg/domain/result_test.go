package domain

import (
	"context"
	"fmt"
	"testing"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	if result.HasBlocking() {
		t.Fatalf("expected no blocking violations")
	}
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock, Message: "room full"}}})
	if !result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	err := RuleViolationError{Result: result}
	if err.Error() != "transaction blocked by rules: room full" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}

func TestResultMergeEmptyInput(t *testing.T) {
	original := Result{Violations: []Violation{{Rule: "existing", Severity: SeverityWarn}}}
	original.Merge(Result{})
	if len(original.Violations) != 1 || original.Violations[0].Rule != "existing" {
		t.Fatalf("expected original violations to remain, got %+v", original.Violations)
	}
}

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"warn"})
	res, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected violation")
	}
	if names := engine.Rules(); len(names) != 1 || names[0] != "warn" {
		t.Fatalf("unexpected rule names %v", names)
	}
}

func TestRulesEngineEvaluateError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(errorRule{})
	if _, err := engine.Evaluate(context.Background(), emptyView{}, nil); err == nil {
		t.Fatalf("expected evaluation error")
	}
}

func TestChangedOwnersFiltersAndDedupes(t *testing.T) {
	changes := []Change{
		{Entity: EntityStudent, OwnerID: "o1"},
		{Entity: EntityPayment, OwnerID: "o2"},
		{Entity: EntityStudent, OwnerID: "o1"},
		{Entity: EntityRoom, OwnerID: "o3"},
		{Entity: EntityRoom},
	}
	got := ChangedOwners(changes, EntityStudent, EntityRoom)
	if len(got) != 2 || got[0] != "o1" || got[1] != "o3" {
		t.Fatalf("unexpected owners %v", got)
	}
	if all := ChangedOwners(changes); len(all) != 3 {
		t.Fatalf("expected all owners, got %v", all)
	}
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn}}}, nil
}

type errorRule struct{}

func (errorRule) Name() string { return "error" }

func (errorRule) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	return Result{}, fmt.Errorf("boom")
}

type emptyView struct{}

func (emptyView) ListHostels(string) []Hostel             { return nil }
func (emptyView) ListRooms(string) []Room                 { return nil }
func (emptyView) ListStudents(string) []Student           { return nil }
func (emptyView) ListPayments(string) []Payment           { return nil }
func (emptyView) ListExpenses(string) []Expense           { return nil }
func (emptyView) ListMenuEntries(string) []MenuEntry      { return nil }
func (emptyView) FindHostel(string) (Hostel, bool)        { return Hostel{}, false }
func (emptyView) FindRoom(string) (Room, bool)            { return Room{}, false }
func (emptyView) FindStudent(string) (Student, bool)      { return Student{}, false }
func (emptyView) FindPayment(string) (Payment, bool)      { return Payment{}, false }
func (emptyView) FindExpense(string) (Expense, bool)      { return Expense{}, false }
func (emptyView) FindMenuEntry(string) (MenuEntry, bool)  { return MenuEntry{}, false }
