package scheduler

import "sort"

// Candidate is one eligible staff member as the engine sees them.
// Count is the running same-day tally, seeded from the load snapshot
// (obligations already assigned or completed on the target date).
// MaxPerDay comes from the weekday's availability window; zero means the
// window disappeared between eligibility resolution and planning, and the
// candidate is skipped rather than treated as an error.
type Candidate struct {
	StaffID   uint
	MaxPerDay int
	Count     int
}

// Task is one pending obligation awaiting placement. DefaultStaffID is
// the owning property's staff preference, nil when the property has none.
type Task struct {
	ObligationID   uint
	DefaultStaffID *uint
}

// Decision records a single placement the engine made.
type Decision struct {
	ObligationID uint
	StaffID      uint
}

// Plan is the explicit state the two assignment passes operate on.
// Remaining holds tasks not yet placed; Decisions accumulates placements
// in the order they were made.
type Plan struct {
	Remaining  []Task
	Candidates []*Candidate
	Decisions  []Decision

	byID map[uint]*Candidate
}

// NewPlan builds a plan over the given tasks and candidates. Tasks are
// ordered ascending by obligation ID and candidates ascending by staff ID
// so that the same inputs always yield the same decisions.
func NewPlan(tasks []Task, candidates []Candidate) *Plan {
	p := &Plan{
		Remaining:  append([]Task(nil), tasks...),
		Candidates: make([]*Candidate, 0, len(candidates)),
		byID:       make(map[uint]*Candidate, len(candidates)),
	}

	sort.Slice(p.Remaining, func(i, j int) bool {
		return p.Remaining[i].ObligationID < p.Remaining[j].ObligationID
	})

	for i := range candidates {
		c := candidates[i]
		p.Candidates = append(p.Candidates, &c)
		p.byID[c.StaffID] = &c
	}
	sort.Slice(p.Candidates, func(i, j int) bool {
		return p.Candidates[i].StaffID < p.Candidates[j].StaffID
	})

	return p
}

func (c *Candidate) hasCapacity() bool {
	return c.MaxPerDay > 0 && c.Count < c.MaxPerDay
}

func (p *Plan) place(task Task, c *Candidate) {
	c.Count++
	p.Decisions = append(p.Decisions, Decision{
		ObligationID: task.ObligationID,
		StaffID:      c.StaffID,
	})
}

// AssignDefaults is phase 1: each task whose property prefers a specific
// staff member goes to that staff member, provided they are a candidate
// and still under their daily cap. Everything else stays in Remaining for
// the fair-load pass.
func (p *Plan) AssignDefaults() {
	var deferred []Task
	for _, task := range p.Remaining {
		if task.DefaultStaffID == nil {
			deferred = append(deferred, task)
			continue
		}
		c, ok := p.byID[*task.DefaultStaffID]
		if !ok || !c.hasCapacity() {
			deferred = append(deferred, task)
			continue
		}
		p.place(task, c)
	}
	p.Remaining = deferred
}

// AssignFair is phase 2: each remaining task goes to the candidate with
// the fewest same-day assignments, ties broken by lowest staff ID. A task
// no candidate can absorb stays in Remaining, which is not an error.
func (p *Plan) AssignFair() {
	var unplaced []Task
	for _, task := range p.Remaining {
		sort.SliceStable(p.Candidates, func(i, j int) bool {
			if p.Candidates[i].Count != p.Candidates[j].Count {
				return p.Candidates[i].Count < p.Candidates[j].Count
			}
			return p.Candidates[i].StaffID < p.Candidates[j].StaffID
		})

		placed := false
		for _, c := range p.Candidates {
			if c.hasCapacity() {
				p.place(task, c)
				placed = true
				break
			}
		}
		if !placed {
			unplaced = append(unplaced, task)
		}
	}
	p.Remaining = unplaced
}

// Run executes both passes and returns the placements in decision order.
func Run(tasks []Task, candidates []Candidate) []Decision {
	p := NewPlan(tasks, candidates)
	p.AssignDefaults()
	p.AssignFair()
	return p.Decisions
}
