package labor

import (
	"github.com/tanukai/factorytown/internal/agents"
)

// Ledger tracks active contracts in hire order. Hire order doubles as
// slot order: when the factory's target headcount shrinks, the newest
// slots are cut first.
type Ledger struct {
	termDays int
	policy   WagePolicy
	nextID   ContractID

	active   []*Contract
	byWorker map[agents.WorkerID]*Contract
}

// NewLedger creates an empty contract ledger.
func NewLedger(termDays int, policy WagePolicy) *Ledger {
	return &Ledger{
		termDays: termDays,
		policy:   policy,
		nextID:   1,
		byWorker: make(map[agents.WorkerID]*Contract),
	}
}

// Headcount is the number of active contracts.
func (l *Ledger) Headcount() int {
	return len(l.active)
}

// Active returns the active contracts in hire order. Callers must not
// mutate the slice.
func (l *Ledger) Active() []*Contract {
	return l.active
}

// ByWorker returns the worker's active contract, or nil.
func (l *Ledger) ByWorker(id agents.WorkerID) *Contract {
	return l.byWorker[id]
}

// AverageWage is the mean wage across active contracts, 0 when idle.
func (l *Ledger) AverageWage() float64 {
	if len(l.active) == 0 {
		return 0
	}
	total := 0.0
	for _, c := range l.active {
		total += c.Wage
	}
	return total / float64(len(l.active))
}

// Hire signs a new contract at the posted wage, appending to slot order.
func (l *Ledger) Hire(worker agents.WorkerID, day int, postedWage float64) *Contract {
	c := &Contract{
		ID:       l.nextID,
		Worker:   worker,
		StartDay: day,
		TermDays: l.termDays,
		Wage:     postedWage,
	}
	l.nextID++
	l.active = append(l.active, c)
	l.byWorker[worker] = c
	return c
}

// Renew replaces an expired contract with a fresh term for the same
// worker, keeping the worker's slot. The new wage follows the ledger's
// wage policy: the posted wage under WageRefresh, the outgoing contract's
// wage under WageLocked.
func (l *Ledger) Renew(old *Contract, day int, postedWage float64) *Contract {
	wage := postedWage
	if l.policy == WageLocked {
		wage = old.Wage
	}
	c := &Contract{
		ID:       l.nextID,
		Worker:   old.Worker,
		StartDay: day,
		TermDays: l.termDays,
		Wage:     wage,
	}
	l.nextID++
	for i, cur := range l.active {
		if cur.ID == old.ID {
			l.active[i] = c
			break
		}
	}
	l.byWorker[old.Worker] = c
	return c
}

// Release ends a worker's contract (the worker opted out). Returns the
// released contract, or nil if the worker held none.
func (l *Ledger) Release(worker agents.WorkerID) *Contract {
	c := l.byWorker[worker]
	if c == nil {
		return nil
	}
	delete(l.byWorker, worker)
	for i, cur := range l.active {
		if cur.ID == c.ID {
			l.active = append(l.active[:i], l.active[i+1:]...)
			break
		}
	}
	return c
}

// LayOff cuts the newest n slots and returns the terminated contracts in
// the order they were cut.
func (l *Ledger) LayOff(n int) []*Contract {
	if n <= 0 {
		return nil
	}
	if n > len(l.active) {
		n = len(l.active)
	}
	cut := make([]*Contract, 0, n)
	for i := 0; i < n; i++ {
		c := l.active[len(l.active)-1]
		l.active = l.active[:len(l.active)-1]
		delete(l.byWorker, c.Worker)
		cut = append(cut, c)
	}
	return cut
}
