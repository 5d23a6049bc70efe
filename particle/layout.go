package particle

// Sizer reports how much per-particle and per-instance storage an entry needs.
type Sizer interface {
	RequiredBytes() int
	RequiredBytesPerInstance() int
}

// Entry is the pair of regions assigned to one layout requester.
type Entry struct {
	Payload  Region
	Instance Region
}

// Layout maps each requester, by position, to its payload and instance regions.
type Layout struct {
	Stride       int
	PayloadSize  int
	InstanceSize int
	Entries      []Entry
}

const fieldAlign = 4

func align(n, a int) int {
	return (n + a - 1) / a * a
}

// BuildLayout walks the requesters in order and assigns consecutive regions after
// the base fields. The same requester list always yields the same layout.
func BuildLayout(baseSize int, reqs []Sizer) Layout {
	l := Layout{Entries: make([]Entry, len(reqs))}
	payloadOff := baseSize
	instanceOff := 0
	for i, r := range reqs {
		if r == nil {
			continue
		}
		if n := r.RequiredBytes(); n > 0 {
			n = align(n, fieldAlign)
			l.Entries[i].Payload = Region{Offset: payloadOff, Size: n}
			payloadOff += n
		}
		if n := r.RequiredBytesPerInstance(); n > 0 {
			n = align(n, fieldAlign)
			l.Entries[i].Instance = Region{Offset: instanceOff, Size: n}
			instanceOff += n
		}
	}
	l.PayloadSize = payloadOff - baseSize
	l.InstanceSize = instanceOff
	l.Stride = align(payloadOff, RecordAlign)
	return l
}

// Entry returns the regions for requester i, or the zero Entry when i is out of range.
func (l Layout) Entry(i int) Entry {
	if i < 0 || i >= len(l.Entries) {
		return Entry{}
	}
	return l.Entries[i]
}

// Equal reports whether two layouts assign identical offsets.
func (l Layout) Equal(o Layout) bool {
	if l.Stride != o.Stride || l.InstanceSize != o.InstanceSize || len(l.Entries) != len(o.Entries) {
		return false
	}
	for i := range l.Entries {
		if l.Entries[i] != o.Entries[i] {
			return false
		}
	}
	return true
}
