package sync

// History is a fixed-capacity circular log of deviation samples. It is
// bound to caller-supplied storage by Reset and afterwards always
// logically holds len(storage) samples; slots that have not been written
// yet read as zero.
type History struct {
	samples []int64
	next    int
}

// Reset binds h to buf, taking ownership of it, clears all samples, and
// moves the write cursor back to the start. The buffer must hold at
// least one element.
func (h *History) Reset(buf []int64) {
	if len(buf) == 0 {
		panic("unexpected history size")
	}
	for i := range buf {
		buf[i] = 0
	}
	h.samples = buf
	h.next = 0
}

// Insert writes v at the cursor position and advances the cursor
// circularly, evicting the sample that Last reported before the call.
func (h *History) Insert(v int64) {
	h.samples[h.next] = v
	h.next = (h.next + 1) % len(h.samples)
}

// Last returns the oldest sample in the window, i.e. the value the next
// Insert will evict. It must be read before the paired Insert; this
// ordering holds even for a capacity of one, where the slot read and the
// slot written are the same.
func (h *History) Last() int64 {
	return h.samples[h.next]
}

// Len returns the window capacity.
func (h *History) Len() int {
	return len(h.samples)
}
