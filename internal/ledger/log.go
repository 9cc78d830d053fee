package ledger

// TransactionLog is the append-only record of an account's ledger entries.
// Entries are kept in insertion (chronological) order; nothing is ever
// removed or reordered. It is not safe for concurrent use on its own; the
// owning Ledger serializes access.
type TransactionLog struct {
	entries []Transaction
}

// Append adds an entry to the log. It never fails.
func (l *TransactionLog) Append(t Transaction) {
	l.entries = append(l.entries, t)
}

// Chronological returns a copy of the entries in true insertion order, for
// computations such as running-balance reconstruction.
func (l *TransactionLog) Chronological() []Transaction {
	out := make([]Transaction, len(l.entries))
	copy(out, l.entries)
	return out
}

// Recent returns a copy of the entries newest-first, the order history
// views display them in.
func (l *TransactionLog) Recent() []Transaction {
	out := make([]Transaction, len(l.entries))
	for i, t := range l.entries {
		out[len(l.entries)-1-i] = t
	}
	return out
}

// Len reports the number of entries.
func (l *TransactionLog) Len() int {
	return len(l.entries)
}

// find returns a pointer to the entry with the given id, or nil. Only the
// settlement path uses it, to transition a pending withdrawal's status.
func (l *TransactionLog) find(id string) *Transaction {
	for i := range l.entries {
		if l.entries[i].ID == id {
			return &l.entries[i]
		}
	}
	return nil
}
