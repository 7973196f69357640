package engine

import (
	"fmt"
	"sort"
)

const noParent = -1

// Hierarchy is the participating employees arranged as an arena of nodes.
// Children lists hold arena indexes and keep input order.
type Hierarchy struct {
	employees []Employee
	index     map[int64]int
	parent    []int
	children  [][]int

	// StandardRoots have no supervisor reference at all.
	StandardRoots []int64
	// InvalidRoots reference a supervisor that is missing, non-participating, themselves,
	// or closes a reporting cycle.
	InvalidRoots []int64
	// BrokenCycles lists, per detected reporting cycle, the member ids in walk order.
	BrokenCycles [][]int64
}

// BuildHierarchy filters the participating employees and links each one to its supervisor.
// Duplicate identifiers among participating employees violate the input contract.
func BuildHierarchy(employees []Employee) (*Hierarchy, error) {
	h := &Hierarchy{index: make(map[int64]int)}
	for _, e := range employees {
		if !e.Status.Participates() {
			continue
		}
		if _, dup := h.index[e.ID]; dup {
			return nil, &ValidationError{Field: "employees", Message: fmt.Sprintf("duplicate employee id %d", e.ID)}
		}
		h.index[e.ID] = len(h.employees)
		h.employees = append(h.employees, e)
	}

	n := len(h.employees)
	h.parent = make([]int, n)
	h.children = make([][]int, n)
	invalid := make([]bool, n)
	for i, e := range h.employees {
		h.parent[i] = noParent
		if e.SupervisorID == nil {
			continue
		}
		p, ok := h.index[*e.SupervisorID]
		if !ok || p == i {
			invalid[i] = true
			continue
		}
		h.parent[i] = p
	}

	h.breakCycles(invalid)

	for i := range h.employees {
		if p := h.parent[i]; p != noParent {
			h.children[p] = append(h.children[p], i)
		}
	}
	for i, e := range h.employees {
		if h.parent[i] != noParent {
			continue
		}
		if invalid[i] {
			h.InvalidRoots = append(h.InvalidRoots, e.ID)
		} else {
			h.StandardRoots = append(h.StandardRoots, e.ID)
		}
	}
	return h, nil
}

// breakCycles detaches one member of every reporting cycle so that each node reaches a root.
// The member with the lowest id becomes an invalid root, which keeps the choice deterministic.
func (h *Hierarchy) breakCycles(invalid []bool) {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make([]int, len(h.employees))
	for start := range h.employees {
		if state[start] != unvisited {
			continue
		}
		var path []int
		cur := start
		for cur != noParent && state[cur] == unvisited {
			state[cur] = onPath
			path = append(path, cur)
			cur = h.parent[cur]
		}
		if cur != noParent && state[cur] == onPath {
			var cycle []int
			for i := len(path) - 1; i >= 0; i-- {
				cycle = append(cycle, path[i])
				if path[i] == cur {
					break
				}
			}
			cut := cycle[0]
			ids := make([]int64, 0, len(cycle))
			for j := len(cycle) - 1; j >= 0; j-- {
				idx := cycle[j]
				ids = append(ids, h.employees[idx].ID)
				if h.employees[idx].ID < h.employees[cut].ID {
					cut = idx
				}
			}
			h.parent[cut] = noParent
			invalid[cut] = true
			h.BrokenCycles = append(h.BrokenCycles, ids)
		}
		for _, idx := range path {
			state[idx] = done
		}
	}
}

// Len returns the number of participating employees.
func (h *Hierarchy) Len() int { return len(h.employees) }

// Employees returns the participating employees in input order.
func (h *Hierarchy) Employees() []Employee { return h.employees }

// Employee looks up a participating employee.
func (h *Hierarchy) Employee(id int64) (Employee, bool) {
	i, ok := h.index[id]
	if !ok {
		return Employee{}, false
	}
	return h.employees[i], true
}

// Parent returns the resolved supervisor of id. Roots report false.
func (h *Hierarchy) Parent(id int64) (int64, bool) {
	i, ok := h.index[id]
	if !ok || h.parent[i] == noParent {
		return 0, false
	}
	return h.employees[h.parent[i]].ID, true
}

// Children returns the direct reports of id in input order.
func (h *Hierarchy) Children(id int64) []int64 {
	i, ok := h.index[id]
	if !ok {
		return nil
	}
	ids := make([]int64, len(h.children[i]))
	for k, c := range h.children[i] {
		ids[k] = h.employees[c].ID
	}
	return ids
}

// Descendants returns every transitive report of id, depth-first.
func (h *Hierarchy) Descendants(id int64) []int64 {
	i, ok := h.index[id]
	if !ok {
		return nil
	}
	var ids []int64
	h.walk(i, func(c int) { ids = append(ids, h.employees[c].ID) })
	return ids
}

// DescendantCount returns the size of the subtree below id.
func (h *Hierarchy) DescendantCount(id int64) int {
	i, ok := h.index[id]
	if !ok {
		return 0
	}
	n := 0
	h.walk(i, func(int) { n++ })
	return n
}

// walk visits the descendants of arena index i depth-first with an explicit stack.
func (h *Hierarchy) walk(i int, visit func(int)) {
	stack := make([]int, 0, len(h.children[i]))
	for k := len(h.children[i]) - 1; k >= 0; k-- {
		stack = append(stack, h.children[i][k])
	}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(c)
		for k := len(h.children[c]) - 1; k >= 0; k-- {
			stack = append(stack, h.children[c][k])
		}
	}
}

// Managers returns the ids of employees with at least one direct report, sorted ascending.
func (h *Hierarchy) Managers() []int64 {
	var ids []int64
	for i, ch := range h.children {
		if len(ch) > 0 {
			ids = append(ids, h.employees[i].ID)
		}
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}
