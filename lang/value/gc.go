package value

// Roots is implemented by whatever owns the live Value graph — the VM —
// so the collector can find every root without this package knowing the
// shape of a call frame or a value stack (spec section 4.5, "Root set").
// mark must be called once per root; marking the same Value twice is
// harmless.
type Roots interface {
	MarkRoots(mark func(Value))
}

// Collect runs one full mark-sweep cycle: mark every root, drain the grey
// worklist by blackening each object's children, tombstone any now-dead
// string-table entry, then sweep the allocation list (spec section 4.5).
func (h *Heap) Collect(roots Roots) {
	h.grey = h.grey[:0]
	roots.MarkRoots(h.mark)
	for len(h.grey) > 0 {
		o := h.grey[len(h.grey)-1]
		h.grey = h.grey[:len(h.grey)-1]
		h.blacken(o)
	}
	h.strings.removeUnmarked()
	h.sweep()
	h.nextGC = h.bytesAllocated * 2
}

// mark greys v (sets its mark bit and pushes it on the grey worklist) if it
// is a heap object that is not yet marked.
// Non-Obj values (Nil, Bool, Number) are not heap allocated and are
// ignored.
func (h *Heap) mark(v Value) {
	if v == nil {
		return
	}
	o, ok := v.(Obj)
	if !ok {
		return
	}
	hdr := o.header()
	if hdr.marked {
		return
	}
	hdr.marked = true
	h.grey = append(h.grey, o)
}

// blacken marks every Value an object directly references (spec section
// 4.5, "Tracing").
func (h *Heap) blacken(o Obj) {
	switch v := o.(type) {
	case *String, *Native:
		// no outgoing references
	case *Upvalue:
		h.mark(v.closed)
	case *Function:
		for _, c := range v.Values {
			h.mark(c)
		}
	case *Closure:
		h.mark(v.Fn)
		for _, up := range v.Upvalues {
			h.mark(up)
		}
	case *Class:
		v.Methods.Iter(func(_ string, m *Closure) bool {
			h.mark(m)
			return false
		})
	case *Instance:
		h.mark(v.Class)
		v.Fields.Iter(func(_ string, fv Value) bool {
			h.mark(fv)
			return false
		})
	case *BoundMethod:
		h.mark(v.Receiver)
		h.mark(v.Method)
	}
}

// sweep unlinks and frees every unmarked object, and resets every marked
// object back to white for the next cycle.
func (h *Heap) sweep() {
	var prev Obj
	cur := h.objects
	for cur != nil {
		hdr := cur.header()
		if hdr.marked {
			hdr.marked = false
			prev = cur
			cur = hdr.next
			continue
		}
		unreached := cur
		cur = hdr.next
		if prev == nil {
			h.objects = cur
		} else {
			prev.header().next = cur
		}
		h.bytesAllocated -= objSize(unreached)
	}
}
