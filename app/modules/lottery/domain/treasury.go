package lotterydomain

// Treasury tracks the pool balance. Outbound value leaves through the
// Transferer held by Lottery.
type Treasury struct {
	balance Amount
}

func NewTreasury(balance Amount) Treasury {
	return Treasury{balance: balance}
}

func (t *Treasury) Balance() Amount { return t.balance }

func (t *Treasury) Credit(a Amount) error {
	b, err := t.balance.Add(a)
	if err != nil {
		return err
	}
	t.balance = b
	return nil
}

// Debit removes a from the pool. The pool never goes negative.
func (t *Treasury) Debit(a Amount) error {
	b, err := t.balance.Sub(a)
	if err != nil {
		return err
	}
	t.balance = b
	return nil
}

// Drain empties the pool and returns what it held.
func (t *Treasury) Drain() Amount {
	a := t.balance
	t.balance = Amount{}
	return a
}
