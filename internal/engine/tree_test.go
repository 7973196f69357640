package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byID(nodes NodeList) map[string]*Node {
	out := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		out[n.ID] = n
	}
	return out
}

func TestBuildTree_RootConsolidation(t *testing.T) {
	employees := []Employee{active(1, nil), active(2, ref(1)), active(3, ref(99))}

	nodes, err := BuildTree(employees, nil, nil, day(t, "2026-01-14"), ModeDirectCount)
	require.NoError(t, err)
	require.Len(t, nodes, 5)

	m := byID(nodes)
	root := m[RootAnchorID]
	require.NotNil(t, root)
	assert.True(t, root.Anchor)
	assert.Equal(t, "", root.ParentID)
	assert.Equal(t, DefaultOrganizationName, root.Name)
	assert.Nil(t, root.Daily)
	assert.Nil(t, root.Summaries)

	unsupervised := m[UnsupervisedAnchorID]
	require.NotNil(t, unsupervised)
	assert.Equal(t, RootAnchorID, unsupervised.ParentID)
	assert.Equal(t, "Unsupervised", unsupervised.Name)
	assert.Equal(t, []string{"3"}, unsupervised.Children)
	assert.Nil(t, unsupervised.Daily)

	assert.Equal(t, RootAnchorID, m["1"].ParentID)
	assert.Equal(t, "1", m["2"].ParentID)
	assert.Equal(t, UnsupervisedAnchorID, m["3"].ParentID)
	assert.Equal(t, []string{"1", UnsupervisedAnchorID}, root.Children)
}

func TestBuildTree_SingleRootNeedsNoAnchor(t *testing.T) {
	employees := []Employee{active(1, nil), active(2, ref(1)), active(3, ref(2))}

	nodes, err := BuildTree(employees, nil, nil, day(t, "2026-01-14"), ModeAllCount)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	m := byID(nodes)
	assert.Equal(t, "", m["1"].ParentID)
	assert.Equal(t, 2, m["1"].DescendantCount)
	require.NotNil(t, m["1"].Summary)
	assert.Equal(t, Summary{Available: 2}, *m["1"].Summary)
	assert.Nil(t, m["3"].Summary)
}

func TestBuildTree_OrganizationNameForcesAnchor(t *testing.T) {
	nodes, err := BuildTree([]Employee{active(1, nil)}, nil, nil, day(t, "2026-01-14"), ModeDirectCount,
		WithOrganizationName("Acme GmbH"))
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "Acme GmbH", nodes[0].Name)
	assert.Equal(t, RootAnchorID, nodes[1].ParentID)
}

func TestBuildTree_StatusesAndSummaries(t *testing.T) {
	employees := []Employee{
		active(101, nil),
		active(201, ref(101)),
		active(202, ref(101)),
		active(301, ref(201)),
		active(302, ref(201)),
	}
	absences := []AbsenceRecord{
		{EmployeeID: 301, StartDate: "2026-01-10", EndDate: "2026-01-12", Category: CategoryVacation},
		{EmployeeID: 302, StartDate: "2026-01-12", EndDate: "2026-01-12", Category: CategorySickLeave},
	}

	nodes, err := BuildTree(employees, absences, nil, day(t, "2026-01-12"), ModeAllCount)
	require.NoError(t, err)
	m := byID(nodes)

	assert.Equal(t, StatusAbsent, m["301"].Daily.Status)
	assert.Equal(t, "Absent (10.01.-12.01.)", m["301"].Daily.Label)
	assert.Equal(t, StatusSick, m["302"].Daily.Status)
	assert.Equal(t, Summary{Available: 2, Absent: 1, Sick: 1}, *m["101"].Summary)
	assert.Equal(t, Summary{Available: 2}, m["101"].Summaries[ModeDirectCount])
	assert.Equal(t, []string{"301", "302"}, m["201"].Children)
}

func TestBuildTree_IsAcyclic(t *testing.T) {
	employees := []Employee{
		active(1, nil), active(2, ref(1)), active(3, ref(4)), active(4, ref(3)),
		active(5, ref(5)), active(6, ref(42)), active(7, ref(6)),
	}
	nodes, err := BuildTree(employees, nil, nil, day(t, "2026-01-14"), ModeDirectCount)
	require.NoError(t, err)

	m := byID(nodes)
	for _, n := range nodes {
		seen := map[string]bool{n.ID: true}
		for cur := n; cur.ParentID != ""; {
			parent, ok := m[cur.ParentID]
			require.True(t, ok, "dangling parent %q", cur.ParentID)
			require.False(t, seen[parent.ID], "node %s reaches itself", n.ID)
			seen[parent.ID] = true
			cur = parent
		}
	}
	assert.Len(t, nodes, len(employees)+2, "no employee may be dropped")
}

func TestBuildTree_MemoKeepsIdentity(t *testing.T) {
	employees := []Employee{active(1, nil), active(2, ref(1))}
	memo := NewMemo()

	first, err := BuildTree(employees, nil, nil, day(t, "2026-01-14"), ModeDirectCount, WithMemo(memo))
	require.NoError(t, err)
	absences := []AbsenceRecord{{EmployeeID: 2, StartDate: "2026-01-15", EndDate: "2026-01-15", Category: CategoryVacation}}
	second, err := BuildTree(employees, absences, nil, day(t, "2026-01-15"), ModeDirectCount, WithMemo(memo))
	require.NoError(t, err)

	assert.Same(t, first[1], second[1])
	assert.Equal(t, StatusAbsent, second[1].Daily.Status)
}

func TestBuildTree_InvalidInput(t *testing.T) {
	var verr *ValidationError

	_, err := BuildTree(nil, nil, nil, day(t, "2026-01-14"), Mode("weekly"))
	assert.True(t, errors.As(err, &verr))

	_, err = BuildTree([]Employee{active(1, nil)}, nil, nil, time.Time{}, ModeDirectCount)
	assert.True(t, errors.As(err, &verr))
}

func TestSnapshot_ResolveStatus(t *testing.T) {
	employees := []Employee{
		active(1, nil),
		{ID: 2, Status: EmploymentFormer},
	}
	absences := []AbsenceRecord{{EmployeeID: 1, StartDate: "2026-01-20", EndDate: "2026-01-20", Category: CategoryVacation, HalfDayStart: true}}
	snap, err := NewSnapshot(employees, absences, nil)
	require.NoError(t, err)

	ds, err := snap.ResolveStatus(1, day(t, "2026-01-20"))
	require.NoError(t, err)
	assert.True(t, ds.HalfDay)
	assert.Equal(t, "½ Absent", ds.Label)

	_, err = snap.ResolveStatus(2, day(t, "2026-01-20"))
	assert.ErrorIs(t, err, ErrEmployeeNotFound)

	all := snap.ResolveAll(day(t, "2026-01-21"))
	assert.Equal(t, map[int64]DailyStatus{1: {Status: StatusAvailable, AM: StatusAvailable, PM: StatusAvailable, Label: "Available"}}, all)
}
