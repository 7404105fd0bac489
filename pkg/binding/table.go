package binding

import (
	"sort"
)

// Table maps each context to its bound commands. A command missing from the
// table is unbound. Tables are treated as values: mutators return a new table.
type Table map[Context]map[Command]Binding

// Conflict describes two commands claiming the same physical input.
type Conflict struct {
	Input    Binding
	Commands []Command
}

// NewTable returns an empty table.
func NewTable() Table {
	t := make(Table, len(Contexts))
	for _, c := range Contexts {
		t[c] = make(map[Command]Binding)
	}
	return t
}

// Get returns the binding for cmd within its own context.
func (t Table) Get(cmd Command) (Binding, bool) {
	if t == nil || !cmd.Valid() {
		return Binding{}, false
	}
	b, ok := t[cmd.Context()][cmd]
	return b, ok
}

// Clone returns a deep copy.
func (t Table) Clone() Table {
	out := NewTable()
	for ctx, cmds := range t {
		if out[ctx] == nil {
			out[ctx] = make(map[Command]Binding, len(cmds))
		}
		for cmd, b := range cmds {
			out[ctx][cmd] = b
		}
	}
	return out
}

// overlaps reports whether bindings in a and b are sampled at the same time.
func overlaps(a, b Context) bool {
	return a == b || a == ContextGlobal || b == ContextGlobal
}

// ConflictsWith returns the commands that already claim the input of b in a
// context that is sampled together with cmd's context.
func (t Table) ConflictsWith(cmd Command, b Binding) []Command {
	var out []Command
	for ctx, cmds := range t {
		if !overlaps(ctx, cmd.Context()) {
			continue
		}
		for other, ob := range cmds {
			if other != cmd && ob.SameInput(b) {
				out = append(out, other)
			}
		}
	}
	sortCommands(out)
	return out
}

// Assign binds cmd to b and unbinds every command that claimed the same
// input, so exactly one assignment wins. It returns the new table and the
// displaced commands.
func (t Table) Assign(cmd Command, b Binding) (Table, []Command, error) {
	if err := b.CheckKind(cmd); err != nil {
		return t, nil, err
	}
	displaced := t.ConflictsWith(cmd, b)
	out := t.Clone()
	for _, d := range displaced {
		delete(out[d.Context()], d)
	}
	out[cmd.Context()][cmd] = b
	return out, displaced, nil
}

// Unbind returns a copy of t with cmd unbound.
func (t Table) Unbind(cmd Command) Table {
	out := t.Clone()
	if cmd.Valid() {
		delete(out[cmd.Context()], cmd)
	}
	return out
}

// Bound lists the bound commands of ctx in declaration order.
func (t Table) Bound(ctx Context) []Command {
	cmds := make([]Command, 0, len(t[ctx]))
	for cmd := range t[ctx] {
		cmds = append(cmds, cmd)
	}
	sortCommands(cmds)
	return cmds
}

// Conflicts scans the whole table. Detection is advisory; nothing is changed.
func (t Table) Conflicts() []Conflict {
	var out []Conflict
	seen := make(map[Command]bool)
	for _, cmd := range AllCommands() {
		if seen[cmd] {
			continue
		}
		b, ok := t.Get(cmd)
		if !ok {
			continue
		}
		others := t.ConflictsWith(cmd, b)
		if len(others) == 0 {
			continue
		}
		group := append([]Command{cmd}, others...)
		for _, c := range group {
			seen[c] = true
		}
		sortCommands(group)
		out = append(out, Conflict{Input: b, Commands: group})
	}
	return out
}

func sortCommands(cmds []Command) {
	sort.Slice(cmds, func(i, j int) bool { return cmds[i] < cmds[j] })
}
