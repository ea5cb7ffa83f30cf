package pipeline

import (
	"slices"
	"strings"

	"github.com/matzehuels/modgraph/pkg/errors"
)

// Plan is a validated execution order for a set of rules.
type Plan struct {
	rules []Rule
	// waits[i] lists the indexes of the rules producing the slots rule i
	// requires.
	waits [][]int
}

// NewPlan orders rules so every rule comes after the producers of the slots
// it requires. Ties keep the input order. It fails when two rules share a
// name or produce the same slot, when a required slot has no producer, or
// when slot dependencies form a cycle.
func NewPlan(rules []Rule) (*Plan, error) {
	names := map[string]bool{}
	producer := map[SlotID]int{}
	for i, r := range rules {
		if names[r.Name()] {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate rule %q", r.Name())
		}
		names[r.Name()] = true
		for _, s := range r.Produces() {
			if j, ok := producer[s]; ok {
				return nil, errors.New(errors.ErrCodeSlotConflict, "slot %q produced by both %q and %q", s, rules[j].Name(), r.Name())
			}
			producer[s] = i
		}
	}

	waits := make([][]int, len(rules))
	indegree := make([]int, len(rules))
	dependents := make([][]int, len(rules))
	for i, r := range rules {
		for _, s := range r.Requires() {
			j, ok := producer[s]
			if !ok {
				return nil, errors.New(errors.ErrCodeUnknownSlot, "rule %q requires slot %q, which no rule produces", r.Name(), s)
			}
			if slices.Contains(waits[i], j) {
				continue
			}
			waits[i] = append(waits[i], j)
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	// Kahn's algorithm; the ready list is kept in input order.
	var ready, order []int
	for i := range rules {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		order = append(order, i)
		for _, d := range dependents[i] {
			indegree[d]--
			if indegree[d] == 0 {
				pos, _ := slices.BinarySearch(ready, d)
				ready = slices.Insert(ready, pos, d)
			}
		}
	}
	if len(order) < len(rules) {
		var stuck []string
		for i, r := range rules {
			if indegree[i] > 0 {
				stuck = append(stuck, r.Name())
			}
		}
		return nil, errors.New(errors.ErrCodePlanCycle, "slot dependency cycle between rules %s", strings.Join(stuck, ", "))
	}

	p := &Plan{rules: make([]Rule, len(order)), waits: make([][]int, len(order))}
	pos := make([]int, len(rules))
	for k, i := range order {
		pos[i] = k
		p.rules[k] = rules[i]
	}
	for k, i := range order {
		for _, j := range waits[i] {
			p.waits[k] = append(p.waits[k], pos[j])
		}
	}
	return p, nil
}

// Rules returns the rules in execution order.
func (p *Plan) Rules() []Rule {
	return slices.Clone(p.rules)
}

// Stages groups rule names by dependency depth: rules in one stage depend
// only on rules in earlier stages and may run concurrently.
func (p *Plan) Stages() [][]string {
	depth := make([]int, len(p.rules))
	var stages [][]string
	for k, r := range p.rules {
		for _, j := range p.waits[k] {
			depth[k] = max(depth[k], depth[j]+1)
		}
		if depth[k] == len(stages) {
			stages = append(stages, nil)
		}
		stages[depth[k]] = append(stages[depth[k]], r.Name())
	}
	return stages
}

// Select returns the named rules plus, transitively, the rules producing
// the slots they require, in the order of all. An empty names list selects
// every rule.
func Select(all []Rule, names []string) ([]Rule, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := map[string]Rule{}
	producer := map[SlotID]string{}
	for _, r := range all {
		byName[r.Name()] = r
		for _, s := range r.Produces() {
			producer[s] = r.Name()
		}
	}
	want := map[string]bool{}
	var visit func(name string) error
	visit = func(name string) error {
		if want[name] {
			return nil
		}
		r, ok := byName[name]
		if !ok {
			return errors.New(errors.ErrCodeNotFound, "unknown rule %q", name)
		}
		want[name] = true
		for _, s := range r.Requires() {
			if p, ok := producer[s]; ok {
				if err := visit(p); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, n := range names {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	var out []Rule
	for _, r := range all {
		if want[r.Name()] {
			out = append(out, r)
		}
	}
	return out, nil
}
