package tablet

// Report is an immutable snapshot of one tablet's memory usage, published
// upstream to the memory controller. It is a value
// object: once emitted it is never mutated, only replaced by a newer Report
// for the same ID.
type Report struct {
	ID ID

	// MemTableBytes is the size of the tablet's live (mutable) memtable.
	MemTableBytes int64

	// MinorCompactingBytes is the size of the memtable currently being
	// flushed, if any; zero when no minor compaction is in flight.
	MinorCompactingBytes int64

	// LastCommitTimeMillis is the wall-clock time, in epoch milliseconds, of
	// the most recent commit that grew the tablet's memory footprint.
	LastCommitTimeMillis int64

	// tablet is the concrete Tablet this report was produced for, carried
	// so the initiator can call back into it and so a stale-report prune can
	// identity-compare against the tablet it last saw.
	tablet Tablet
}

// NewReport builds a Report bound to t, the Tablet the initiator calls back
// into once the memory policy recommends this ID for a minor compaction.
func NewReport(id ID, memTableBytes, minorCompactingBytes, lastCommitTimeMillis int64, t Tablet) Report {
	return Report{
		ID:                   id,
		MemTableBytes:        memTableBytes,
		MinorCompactingBytes: minorCompactingBytes,
		LastCommitTimeMillis: lastCommitTimeMillis,
		tablet:               t,
	}
}

// TotalBytes is the sum the guard aggregates across all tablets.
func (r Report) TotalBytes() int64 {
	return r.MemTableBytes + r.MinorCompactingBytes
}

// Tablet returns the concrete Tablet this report was produced for.
func (r Report) Tablet() Tablet { return r.tablet }

// Tablet is the collaborator contract the memory controller's initiator
// calls back into.
type Tablet interface {
	// InitiateMinorCompaction asks the tablet to begin a minor compaction
	// for the given reason, returning false if the tablet declined (already
	// compacting, closed, under user compaction, ...).
	InitiateMinorCompaction(reason MinorCompactionReason) bool

	// IsClosed reports whether the tablet has already unloaded.
	IsClosed() bool

	// Extent returns the tablet's identity.
	Extent() ID
}

// MinorCompactionReason distinguishes why a minor compaction was requested.
type MinorCompactionReason int

const (
	// MinorCompactSystem is initiated by the memory controller.
	MinorCompactSystem MinorCompactionReason = iota
	// MinorCompactUser is initiated by an explicit user request.
	MinorCompactUser
	// MinorCompactClose is initiated as part of tablet unload.
	MinorCompactClose
)
