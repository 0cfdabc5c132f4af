package wire

// Deserializer is a lazy forward iterator over a peek reply buffer, yielding
// VSMs in the order they were encoded (version groups in increasing version
// order; items within a group in encoding order, expected to already be
// sorted by subsequence by the writer). It is the concrete implementation of
// the "MessageDeserializer" external contract: given a reply's bytes, supply
// an iterator; allow Reset with new bytes; report the first/last version
// seen.
//
// EMPTY_VERSION messages are emitted, not elided — elision is a policy layer
// above the deserializer (see StorageTeamPeekCursor.HasRemaining).
type Deserializer struct {
	buf []byte

	curGroup    decodedGroup
	groupValid  bool
	itemIdx     int
	groupOffset int // byte offset in buf where curGroup starts

	firstVersion uint64
	haveFirst    bool
	lastVersion  uint64
}

// NewDeserializer constructs a Deserializer over buf. buf may be empty, in
// which case the deserializer starts (and stays) exhausted.
func NewDeserializer(buf []byte) *Deserializer {
	d := &Deserializer{buf: buf}
	d.advanceGroup()
	return d
}

// Reset repoints the deserializer at a new buffer and rewinds to the start,
// without any network I/O.
func (d *Deserializer) Reset(buf []byte) {
	d.buf = buf
	d.groupValid = false
	d.itemIdx = 0
	d.groupOffset = 0
	d.haveFirst = false
	d.lastVersion = 0
	d.advanceGroup()
}

// Rewind repositions to the beginning of the current buffer without
// discarding it (used by cursor Reset()).
func (d *Deserializer) Rewind() {
	d.groupValid = false
	d.itemIdx = 0
	d.groupOffset = 0
	d.advanceGroup()
}

func (d *Deserializer) advanceGroup() {
	if d.groupOffset >= len(d.buf) {
		d.groupValid = false
		return
	}
	g, err := decodeVersionGroup(d.buf[d.groupOffset:])
	if err != nil {
		// A reference codec treats corruption as end-of-data rather than
		// panicking; callers that need strict validation should check
		// Err() (not currently exposed, matching the contract's scope).
		d.groupValid = false
		return
	}
	d.curGroup = g
	d.groupValid = true
	d.itemIdx = 0
	if !d.haveFirst {
		d.firstVersion = g.version
		d.haveFirst = true
	}
	d.lastVersion = g.version
}

// HasNext reports whether Next would yield another VSM.
func (d *Deserializer) HasNext() bool {
	for d.groupValid && d.itemIdx >= len(d.curGroup.items) {
		d.groupOffset += d.curGroup.consumed
		d.advanceGroup()
	}
	return d.groupValid && d.itemIdx < len(d.curGroup.items)
}

// Next returns the next VSM and advances. Precondition: HasNext().
func (d *Deserializer) Next() VSM {
	v := d.curGroup.items[d.itemIdx]
	d.itemIdx++
	return v
}

// FirstVersion returns the version of the first group encoded in the current
// buffer. Valid once at least one group has been scanned (i.e. after
// construction, even before any Next() call).
func (d *Deserializer) FirstVersion() (uint64, bool) { return d.firstVersion, d.haveFirst }

// LastVersion returns the version of the last group scanned so far. Because
// scanning is lazy, this only reflects groups visited by HasNext/Next calls
// made so far (monotonically increasing as iteration proceeds), plus the
// first group inspected at construction.
func (d *Deserializer) LastVersion() uint64 { return d.lastVersion }

// Empty reports whether the buffer contains no decodable groups at all.
func (d *Deserializer) Empty() bool { return !d.HasNext() }
