package coding

import "github.com/meridian-cg/coding-portal/internal/model"

// LockGate decides whether a coding mutation may proceed. A transaction is
// read-only when either its statement or the transaction itself is locked.
type LockGate struct {
	StatementLocked   bool
	TransactionLocked bool
	Reason            string
}

// GateFor builds the gate state from the statement and transaction rows.
// Either side may be nil when the caller has not loaded it.
func GateFor(st *model.Statement, tx *model.Transaction) LockGate {
	g := LockGate{}
	if st != nil {
		g.StatementLocked = st.IsLocked
		g.Reason = st.LockReason
	}
	if tx != nil {
		g.TransactionLocked = tx.IsLocked
	}
	return g
}

// Locked reports the effective lock state.
func (g LockGate) Locked() bool {
	return g.StatementLocked || g.TransactionLocked
}

// Check returns a LockedError when mutations are not allowed.
func (g LockGate) Check() error {
	if !g.Locked() {
		return nil
	}
	return &LockedError{Reason: g.Reason}
}
