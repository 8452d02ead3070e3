package memmap

import (
	"errors"
	"fmt"
)

// State is the state of an Initializer.
type State int

const (
	Unconfigured State = iota
	Configured
	Placed
	Running
	// Halted is entered on any validation failure. Only Reset leaves it.
	Halted
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Placed:
		return "placed"
	case Running:
		return "running"
	case Halted:
		return "halted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Machine receives the initial machine state. Install is called exactly
// once per reset cycle.
type Machine interface {
	Install(sp, entry uint64) error
}

// ComputeInitialStack returns the initial stack pointer: the first address
// past the top of the stack region's free space. For a region without
// reservations this is base+length.
func ComputeInitialStack(t *Table) (uint64, error) {
	r, err := t.StackRegion()
	if err != nil {
		return 0, err
	}
	span, err := t.Resolve(r.Name)
	if err != nil {
		return 0, err
	}
	if span.Length == 0 {
		return 0, &MissingRegionError{Role: "stack",
			Reason: fmt.Sprintf("region %s is fully reserved", r.Name)}
	}
	return span.Top(), nil
}

// Initializer runs the startup sequence
// Unconfigured -> Configured -> Placed -> Running. A failure halts it until
// Reset.
type Initializer struct {
	state State
	table *Table
	sp    uint64
	entry uint64
	err   error
}

func NewInitializer() *Initializer {
	return &Initializer{}
}

func (in *Initializer) State() State {
	return in.state
}

// Err returns the error that halted the initializer.
func (in *Initializer) Err() error {
	return in.err
}

// Table returns the configured table, or nil before Configure.
func (in *Initializer) Table() *Table {
	return in.table
}

func (in *Initializer) expect(op string, s State) error {
	if in.state != s {
		return &StateError{Op: op, State: in.state}
	}
	return nil
}

func (in *Initializer) halt(err error) error {
	in.state = Halted
	in.err = err
	return err
}

// Configure validates the stack and code roles and seals the table.
func (in *Initializer) Configure(t *Table) error {
	if err := in.expect("configure", Unconfigured); err != nil {
		return err
	}
	if t == nil || len(t.regions) == 0 {
		return in.halt(&MissingRegionError{Role: "any", Reason: "region table is empty"})
	}
	if _, err := ComputeInitialStack(t); err != nil {
		return in.halt(err)
	}
	if err := checkRoles(t); err != nil {
		return in.halt(err)
	}
	t.Seal()
	in.table = t
	in.state = Configured
	return nil
}

// checkRoles requires one region for code and a different one for the
// stack.
func checkRoles(t *Table) error {
	stack, err := t.StackRegion()
	if err != nil {
		return err
	}
	code, err := t.CodeRegion()
	if err != nil {
		return err
	}
	if stack.Name == code.Name {
		return &MissingRegionError{Role: "code",
			Reason: fmt.Sprintf("region %s already supplies the stack", code.Name)}
	}
	return nil
}

// Place validates the placement of the compiled sections.
func (in *Initializer) Place(sections []Section) error {
	if err := in.expect("place", Configured); err != nil {
		return err
	}
	if err := ValidatePlacement(in.table, sections); err != nil {
		return in.halt(err)
	}
	in.state = Placed
	return nil
}

// Start computes the stack pointer, hands it to m together with the entry
// point and enters Running.
func (in *Initializer) Start(entry uint64, m Machine) error {
	if err := in.expect("start", Placed); err != nil {
		return err
	}
	if m == nil {
		return in.halt(errors.New("memmap: no machine to install the initial state into"))
	}
	if err := in.checkEntry(entry); err != nil {
		return in.halt(err)
	}
	sp, err := ComputeInitialStack(in.table)
	if err != nil {
		return in.halt(err)
	}
	if err := m.Install(sp, entry); err != nil {
		return in.halt(fmt.Errorf("memmap: install initial state: %w", err))
	}
	in.sp = sp
	in.entry = entry
	in.state = Running
	return nil
}

// checkEntry requires the entry point to be in an executable region. The
// low bit is ignored, Thumb entry points carry it.
func (in *Initializer) checkEntry(entry uint64) error {
	addr := entry &^ 1
	r, ok := in.table.regionAt(addr)
	if !ok {
		return &UnknownRegionError{Name: fmt.Sprintf("%#x", addr), Ref: "entry point"}
	}
	if !r.Perm.Has(Exec) {
		return &RangeError{Name: "entry point", Offset: addr, Limit: r.Base + r.Length,
			Reason: fmt.Sprintf("region %s is not executable", r.Name)}
	}
	return nil
}

// StackPointer returns the installed stack pointer once Running.
func (in *Initializer) StackPointer() (uint64, bool) {
	return in.sp, in.state == Running
}

// Entry returns the installed entry point once Running.
func (in *Initializer) Entry() (uint64, bool) {
	return in.entry, in.state == Running
}

// Reset returns the initializer to Unconfigured, like a hardware reset.
func (in *Initializer) Reset() {
	*in = Initializer{}
}
