package core

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"staytrack/pkg/domain"
)

func strPtr(s string) *string { return &s }

func TestStatusFor(t *testing.T) {
	cases := []struct {
		capacity, occupied int
		want               RoomStatus
	}{
		{2, 0, RoomVacant},
		{2, 1, "1 Beds Free"},
		{4, 1, "3 Beds Free"},
		{2, 2, RoomFull},
		{2, 3, RoomFull},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.capacity, tc.occupied); got != tc.want {
			t.Fatalf("StatusFor(%d,%d)=%q want %q", tc.capacity, tc.occupied, got, tc.want)
		}
	}
}

func TestCalculateOccupancyRecomputesFromActiveStudents(t *testing.T) {
	rooms := []Room{
		{Base: domain.Base{ID: "r1"}, Number: "A-101", Capacity: 2, Occupied: 7},
		{Base: domain.Base{ID: "r2"}, Number: "A-102", Capacity: 3},
	}
	students := []Student{
		{Base: domain.Base{ID: "s1"}, RoomID: strPtr("r1"), Status: domain.StudentActive},
		{Base: domain.Base{ID: "s2"}, RoomID: strPtr("r1"), Status: domain.StudentInactive},
		{Base: domain.Base{ID: "s3"}, RoomID: strPtr("r2")},
		{Base: domain.Base{ID: "s4"}, RoomID: strPtr("r2")},
		{Base: domain.Base{ID: "s5"}},
	}
	occ := CalculateOccupancy(rooms, students)

	require.Len(t, occ.Rooms, 2)
	assert.Equal(t, 1, occ.Rooms[0].Occupied)
	assert.Equal(t, 1, occ.Rooms[0].Room.Occupied)
	assert.Equal(t, RoomStatus("1 Beds Free"), occ.Rooms[0].Status)
	assert.Equal(t, 2, occ.Rooms[1].Occupied)
	assert.Equal(t, 5, occ.TotalCapacity)
	assert.Equal(t, 3, occ.TotalOccupied)
	assert.Equal(t, 2, occ.Vacancy)
	assert.Equal(t, 4, occ.ActiveStudents)
	assert.InDelta(t, 80.0, occ.Percentage, 1e-9)
	assert.Equal(t, 7, rooms[0].Occupied, "input rooms must not be modified")
}

func TestCalculateOccupancyZeroCapacity(t *testing.T) {
	occ := CalculateOccupancy(nil, []Student{{Base: domain.Base{ID: "s1"}}})
	assert.Zero(t, occ.Percentage)
	assert.Zero(t, occ.TotalCapacity)
	assert.Empty(t, occ.Rooms)
}

func TestPercentage(t *testing.T) {
	assert.Zero(t, Percentage(3, 0))
	assert.Zero(t, Percentage(0, -1))
	assert.InDelta(t, 50.0, Percentage(1, 2), 1e-9)
	assert.InDelta(t, 100.0, Percentage(4, 4), 1e-9)
}

func reconcileFixture() ([]Student, []Payment) {
	students := []Student{
		{Base: domain.Base{ID: "s1"}, Name: "Rahul", RoomNumber: "A-101", Rent: decimal.NewFromInt(5000)},
		{Base: domain.Base{ID: "s2"}, Name: "Priya", RoomNumber: "B-201", Rent: decimal.NewFromInt(6000), Status: domain.StudentActive},
		{Base: domain.Base{ID: "s3"}, Name: "Arjun", RoomNumber: "A-102", Rent: decimal.NewFromInt(4000), Status: domain.StudentInactive},
	}
	payments := []Payment{
		{Base: domain.Base{ID: "p1"}, StudentID: "s1", Month: "March 2025", Amount: decimal.NewFromInt(5000)},
		{Base: domain.Base{ID: "p2"}, StudentID: "s2", Month: "February 2025", Amount: decimal.NewFromInt(6000)},
		{Base: domain.Base{ID: "p3"}, StudentID: "s3", Month: "March 2025", Amount: decimal.NewFromInt(4000)},
	}
	return students, payments
}

func TestReconcileJoinsOnStudentAndMonth(t *testing.T) {
	students, payments := reconcileFixture()
	rec := Reconcile("March 2025", students, payments, nil)

	require.Len(t, rec.Entries, 2, "inactive students are excluded")
	assert.Equal(t, StatusPaid, rec.Entries[0].Status)
	assert.Equal(t, "p1", rec.Entries[0].Payment.ID)
	assert.Equal(t, StatusUnpaid, rec.Entries[1].Status)
	assert.Nil(t, rec.Entries[1].Payment)
	assert.Equal(t, 1, rec.PaidCount)
	assert.Equal(t, 2, rec.TotalActive)
	assert.True(t, rec.Collected.Equal(decimal.NewFromInt(5000)))
	assert.True(t, rec.Expected.Equal(decimal.NewFromInt(11000)))
	assert.InDelta(t, 50.0, rec.Percentage, 1e-9)
}

func TestReconcileNoActiveStudents(t *testing.T) {
	rec := Reconcile("March 2025", nil, nil, zap.NewNop())
	assert.Zero(t, rec.Percentage)
	assert.Empty(t, rec.Entries)
}

func TestReconcileDuplicatesKeepLowestIDAndLog(t *testing.T) {
	obsCore, logs := observer.New(zap.WarnLevel)
	students, _ := reconcileFixture()
	payments := []Payment{
		{Base: domain.Base{ID: "p9"}, StudentID: "s1", Month: "March 2025", Amount: decimal.NewFromInt(100)},
		{Base: domain.Base{ID: "p2"}, StudentID: "s1", Month: "March 2025", Amount: decimal.NewFromInt(5000)},
	}
	rec := Reconcile("March 2025", students, payments, zap.New(obsCore))

	e, ok := rec.Entry("s1")
	require.True(t, ok)
	assert.Equal(t, "p2", e.Payment.ID)
	assert.True(t, rec.Collected.Equal(decimal.NewFromInt(5000)))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "p2", fields["kept_payment_id"])
	assert.Equal(t, "p9", fields["ignored_payment_id"])
}

func TestFilterIsPure(t *testing.T) {
	students, payments := reconcileFixture()
	students = append(students, Student{Base: domain.Base{ID: "s4"}, Name: "Rohan", RoomNumber: "C-301"})
	rec := Reconcile("March 2025", students, payments, nil)
	before := make([]ReconciledStudent, len(rec.Entries))
	copy(before, rec.Entries)

	paid := rec.Filter(TabPaid, "")
	unpaid := rec.Filter(TabUnpaid, "")
	assert.Len(t, paid, 1)
	assert.Len(t, unpaid, 2)

	byName := rec.Filter(TabAll, "  rAh ")
	require.Len(t, byName, 1)
	assert.Equal(t, "Rahul", byName[0].Student.Name)

	byRoom := rec.Filter(TabAll, "c-3")
	require.Len(t, byRoom, 1)
	assert.Equal(t, "Rohan", byRoom[0].Student.Name)

	assert.Equal(t, rec.Filter(TabUnpaid, "r"), rec.Filter(TabUnpaid, "r"))
	assert.True(t, reflect.DeepEqual(before, rec.Entries), "filter must not mutate the reconciliation")
	assert.Empty(t, rec.Filter(TabPaid, "priya"))
}

func TestParseTab(t *testing.T) {
	assert.Equal(t, TabPaid, ParseTab("paid"))
	assert.Equal(t, TabUnpaid, ParseTab("Unpaid"))
	assert.Equal(t, TabAll, ParseTab(""))
	assert.Equal(t, TabAll, ParseTab("whatever"))
}

func TestSummarizeExpensesOrdersByCategory(t *testing.T) {
	expenses := []Expense{
		{Amount: decimal.NewFromInt(300), Category: domain.CategoryWater},
		{Amount: decimal.NewFromInt(1200), Category: domain.CategoryGroceries},
		{Amount: decimal.NewFromInt(800), Category: domain.CategoryGroceries},
	}
	sum := SummarizeExpenses("March 2025", expenses)
	require.Len(t, sum.Categories, 2)
	assert.Equal(t, domain.CategoryGroceries, sum.Categories[0].Category)
	assert.Equal(t, 2, sum.Categories[0].Count)
	assert.True(t, sum.Categories[0].Total.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, "water", sum.Categories[1].Icon)
	assert.True(t, sum.Total.Equal(decimal.NewFromInt(2300)))
}
