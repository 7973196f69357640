package engine

import (
	"strconv"
	"time"
)

const (
	// DefaultOrganizationName labels the top-level anchor when nothing else is configured.
	DefaultOrganizationName = "Organization"

	RootAnchorID         = "anchor-root"
	UnsupervisedAnchorID = "anchor-unsupervised"
	unsupervisedName     = "Unsupervised"
)

// Node is one renderable chart entry. Anchors carry no employee, status or summaries.
type Node struct {
	ID              string       `json:"id"`
	ParentID        string       `json:"parentId"`
	Name            string       `json:"name"`
	Anchor          bool         `json:"isAnchor,omitempty"`
	Employee        *Employee    `json:"employee,omitempty"`
	Daily           *DailyStatus `json:"daily,omitempty"`
	Children        []string     `json:"children,omitempty"`
	DescendantCount int          `json:"descendantCount"`
	Summaries       Summaries    `json:"summaries,omitempty"`
	Summary         *Summary     `json:"summary,omitempty"`
}

// NodeList is the assembled chart in render order: anchors first, then employees in input order.
type NodeList []*Node

// Memo keeps node identity stable across repeated BuildTree calls. It is owned by the
// caller and is not safe for concurrent use.
type Memo struct {
	nodes map[string]*Node
}

// NewMemo returns an empty Memo.
func NewMemo() *Memo {
	return &Memo{nodes: make(map[string]*Node)}
}

func (m *Memo) node(id string) *Node {
	if m == nil {
		return &Node{ID: id}
	}
	n, ok := m.nodes[id]
	if !ok {
		n = &Node{ID: id}
		m.nodes[id] = n
	}
	return n
}

type treeOptions struct {
	orgName string
	memo    *Memo
}

// TreeOption customizes BuildTree.
type TreeOption func(*treeOptions)

// WithOrganizationName labels the top-level anchor. A non-default name forces the anchor.
func WithOrganizationName(name string) TreeOption {
	return func(o *treeOptions) {
		if name != "" {
			o.orgName = name
		}
	}
}

// WithMemo reuses node objects from m and records the new ones in it.
func WithMemo(m *Memo) TreeOption {
	return func(o *treeOptions) { o.memo = m }
}

// BuildTree resolves every participating employee on date and assembles the node list with
// summaries for mode.
func BuildTree(employees []Employee, absences []AbsenceRecord, holidays []PublicHoliday, date time.Time, mode Mode, opts ...TreeOption) (NodeList, error) {
	if date.IsZero() {
		return nil, &ValidationError{Field: "date", Message: "must be set"}
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	o := treeOptions{orgName: DefaultOrganizationName}
	for _, opt := range opts {
		opt(&o)
	}

	h, err := BuildHierarchy(employees)
	if err != nil {
		return nil, err
	}

	byEmployee := indexAbsences(absences)
	statuses := make(map[int64]DailyStatus, h.Len())
	overall := make(map[int64]Status, h.Len())
	for _, e := range h.employees {
		ds := Resolve(e, date, holidays, byEmployee[e.ID])
		statuses[e.ID] = ds
		overall[e.ID] = ds.Status
	}
	summaries := Aggregate(h, overall)

	rootCount := len(h.StandardRoots) + len(h.InvalidRoots)
	needRoot := rootCount > 1 || o.orgName != DefaultOrganizationName || len(h.InvalidRoots) > 0

	nodes := make(NodeList, 0, h.Len()+2)
	if needRoot {
		root := o.memo.node(RootAnchorID)
		*root = Node{ID: RootAnchorID, Name: o.orgName, Anchor: true, DescendantCount: h.Len()}
		nodes = append(nodes, root)
		if len(h.InvalidRoots) > 0 {
			un := o.memo.node(UnsupervisedAnchorID)
			*un = Node{ID: UnsupervisedAnchorID, ParentID: RootAnchorID, Name: unsupervisedName, Anchor: true}
			nodes = append(nodes, un)
		}
	}

	invalid := make(map[int64]bool, len(h.InvalidRoots))
	for _, id := range h.InvalidRoots {
		invalid[id] = true
	}

	var rootChildren, unsupervisedChildren []string
	unsupervisedCount := 0
	for i := range h.employees {
		e := h.employees[i]
		id := nodeID(e.ID)
		n := o.memo.node(id)

		ds := statuses[e.ID]
		*n = Node{
			ID:              id,
			Name:            e.DisplayName(),
			Employee:        &h.employees[i],
			Daily:           &ds,
			DescendantCount: h.DescendantCount(e.ID),
			Summaries:       summaries[e.ID],
		}
		for _, c := range h.Children(e.ID) {
			n.Children = append(n.Children, nodeID(c))
		}
		if s, ok := summaries[e.ID][mode]; ok {
			n.Summary = &s
		}

		switch parent, ok := h.Parent(e.ID); {
		case ok:
			n.ParentID = nodeID(parent)
		case invalid[e.ID] && needRoot:
			n.ParentID = UnsupervisedAnchorID
			unsupervisedChildren = append(unsupervisedChildren, id)
			unsupervisedCount += 1 + n.DescendantCount
		case needRoot:
			n.ParentID = RootAnchorID
			rootChildren = append(rootChildren, id)
		}
		nodes = append(nodes, n)
	}

	if needRoot {
		nodes[0].Children = rootChildren
		if len(h.InvalidRoots) > 0 {
			nodes[0].Children = append(nodes[0].Children, UnsupervisedAnchorID)
			nodes[1].Children = unsupervisedChildren
			nodes[1].DescendantCount = unsupervisedCount
			nodes[0].DescendantCount++
		}
	}
	return nodes, nil
}

// Snapshot answers per-employee status queries over one set of records.
type Snapshot struct {
	hierarchy  *Hierarchy
	holidays   []PublicHoliday
	byEmployee map[int64][]AbsenceRecord
}

// NewSnapshot indexes the records for repeated ResolveStatus calls.
func NewSnapshot(employees []Employee, absences []AbsenceRecord, holidays []PublicHoliday) (*Snapshot, error) {
	h, err := BuildHierarchy(employees)
	if err != nil {
		return nil, err
	}
	return &Snapshot{hierarchy: h, holidays: holidays, byEmployee: indexAbsences(absences)}, nil
}

// Hierarchy exposes the snapshot's hierarchy.
func (s *Snapshot) Hierarchy() *Hierarchy { return s.hierarchy }

// ResolveStatus resolves one participating employee on date.
func (s *Snapshot) ResolveStatus(employeeID int64, date time.Time) (DailyStatus, error) {
	if date.IsZero() {
		return DailyStatus{}, &ValidationError{Field: "date", Message: "must be set"}
	}
	e, ok := s.hierarchy.Employee(employeeID)
	if !ok {
		return DailyStatus{}, ErrEmployeeNotFound
	}
	return Resolve(e, date, s.holidays, s.byEmployee[employeeID]), nil
}

// ResolveAll resolves every participating employee on date.
func (s *Snapshot) ResolveAll(date time.Time) map[int64]DailyStatus {
	out := make(map[int64]DailyStatus, s.hierarchy.Len())
	for _, e := range s.hierarchy.employees {
		out[e.ID] = Resolve(e, date, s.holidays, s.byEmployee[e.ID])
	}
	return out
}

func indexAbsences(absences []AbsenceRecord) map[int64][]AbsenceRecord {
	out := make(map[int64][]AbsenceRecord)
	for _, a := range absences {
		out[a.EmployeeID] = append(out[a.EmployeeID], a)
	}
	return out
}

func nodeID(id int64) string {
	return strconv.FormatInt(id, 10)
}
