package lotterydomain

type entryKey struct {
	bettor Address
	number uint8
}

// EntryLedger records the entries of the live round.
type EntryLedger struct {
	entries []Entry
	seen    map[entryKey]struct{}
	counts  [MaxNumber + 1]uint64
	stakes  [MaxNumber + 1]Amount
}

func NewEntryLedger() *EntryLedger {
	return &EntryLedger{seen: make(map[entryKey]struct{})}
}

// ValidateNumber checks the guess range.
func ValidateNumber(number int) error {
	if number < MinNumber {
		return ErrNumberTooSmall
	}
	if number > MaxNumber {
		return ErrNumberTooLarge
	}
	return nil
}

func (l *EntryLedger) Has(bettor Address, number uint8) bool {
	_, ok := l.seen[entryKey{bettor: bettor, number: number}]
	return ok
}

// Record appends e. Callers validate range and uniqueness first.
func (l *EntryLedger) Record(e Entry) error {
	if err := ValidateNumber(int(e.Number)); err != nil {
		return err
	}
	if l.Has(e.Bettor, e.Number) {
		return ErrDuplicateEntry
	}
	stake, err := l.stakes[e.Number].Add(e.Stake)
	if err != nil {
		return err
	}
	l.entries = append(l.entries, e)
	l.seen[entryKey{bettor: e.Bettor, number: e.Number}] = struct{}{}
	l.counts[e.Number]++
	l.stakes[e.Number] = stake
	return nil
}

// Count returns the live entries on number; out of range numbers have none.
func (l *EntryLedger) Count(number int) uint64 {
	if ValidateNumber(number) != nil {
		return 0
	}
	return l.counts[number]
}

func (l *EntryLedger) Total() uint64 {
	return uint64(len(l.entries))
}

// StakeOn returns the summed stakes on number.
func (l *EntryLedger) StakeOn(number uint8) Amount {
	if ValidateNumber(int(number)) != nil {
		return Amount{}
	}
	return l.stakes[number]
}

// StakesWith returns per-number stake totals as if e had been recorded.
func (l *EntryLedger) StakesWith(e Entry) ([MaxNumber + 1]Amount, error) {
	stakes := l.stakes
	s, err := stakes[e.Number].Add(e.Stake)
	if err != nil {
		return stakes, err
	}
	stakes[e.Number] = s
	return stakes, nil
}

// Matching returns the entries on number in submission order.
func (l *EntryLedger) Matching(number uint8) []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.Number == number {
			out = append(out, e)
		}
	}
	return out
}

// Counts returns a copy of the per-number counters, indexed by number.
func (l *EntryLedger) Counts() [MaxNumber + 1]uint64 { return l.counts }

func (l *EntryLedger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Reset clears every entry and counter.
func (l *EntryLedger) Reset() {
	l.entries = nil
	l.seen = make(map[entryKey]struct{})
	l.counts = [MaxNumber + 1]uint64{}
	l.stakes = [MaxNumber + 1]Amount{}
}

func (l *EntryLedger) clone() *EntryLedger {
	c := &EntryLedger{
		entries: l.Entries(),
		seen:    make(map[entryKey]struct{}, len(l.seen)),
		counts:  l.counts,
		stakes:  l.stakes,
	}
	for k := range l.seen {
		c.seen[k] = struct{}{}
	}
	return c
}
