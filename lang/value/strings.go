package value

// stringTable is the VM's string-interning table: a power-of-two-sized
// open-addressed hash table with linear probing and tombstones, keyed by
// string content and FNV-1a hash (spec section 4.4). It is the only
// authority on string identity: Intern always returns the canonical
// *String for a given content, which is what makes Lox string equality a
// pointer comparison.
type stringTable struct {
	entries []stringSlot
	count   int // occupied slots, including tombstones
}

type stringSlot struct {
	key       *String
	tombstone bool
}

const initialStringTableCap = 8

func newStringTable() *stringTable {
	return &stringTable{entries: make([]stringSlot, initialStringTableCap)}
}

func fnv1a(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// find runs the probe sequence for chars/hash over entries, returning the
// index to use (an existing match, or the first free/tombstone slot) and
// whether that index already holds a matching entry.
func findStringSlot(entries []stringSlot, chars string, hash uint32) (int, bool) {
	capacity := uint32(len(entries))
	index := hash & (capacity - 1)
	tombstoneIdx := -1
	for {
		e := &entries[index]
		switch {
		case e.key == nil && !e.tombstone:
			if tombstoneIdx != -1 {
				return tombstoneIdx, false
			}
			return int(index), false
		case e.key == nil && e.tombstone:
			if tombstoneIdx == -1 {
				tombstoneIdx = int(index)
			}
		case e.key.hash == hash && e.key.chars == chars:
			return int(index), true
		}
		index = (index + 1) & (capacity - 1)
	}
}

func (t *stringTable) grow(newCap int) {
	old := t.entries
	t.entries = make([]stringSlot, newCap)
	t.count = 0
	for _, e := range old {
		if e.key == nil {
			continue
		}
		idx, _ := findStringSlot(t.entries, e.key.chars, e.key.hash)
		t.entries[idx] = stringSlot{key: e.key}
		t.count++
	}
}

// intern returns the canonical *String for chars, creating and inserting a
// new String object if none exists yet. The returned bool is true when a
// new String was allocated (the caller must account for it in
// bytesAllocated and the allocation list).
func (t *stringTable) intern(chars string) (*String, bool) {
	if float64(t.count+1) > float64(len(t.entries))*0.75 {
		t.grow(len(t.entries) * 2)
	}
	hash := fnv1a(chars)
	idx, found := findStringSlot(t.entries, chars, hash)
	if found {
		return t.entries[idx].key, false
	}
	s := &String{chars: chars, hash: hash}
	if !t.entries[idx].tombstone {
		t.count++
	}
	t.entries[idx] = stringSlot{key: s}
	return s, true
}

// removeUnmarked tombstones every entry whose key is unmarked, run by the
// collector immediately before sweeping the object heap so the table never
// keeps a dangling reference to a String about to be freed (spec section
// 4.5, "string-table weakness").
func (t *stringTable) removeUnmarked() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.marked {
			*e = stringSlot{tombstone: true}
		}
	}
}
