package fasta

// Window is a 0-based region of a scaffold; both ends are inclusive.
type Window struct {
	Start int
	End   int
}

// Length in bases.
func (w Window) Length() int { return w.End - w.Start + 1 }

// Windows splits a scaffold of the given length into near-equal regions of
// approximately window bases. Scaffolds shorter than the window yield one
// region covering everything; remainders are spread so no region is ever
// shorter than half the target.
func Windows(length, window int) []Window {
	if length <= 0 {
		return nil
	}
	if window <= 0 || length <= window {
		return []Window{{Start: 0, End: length - 1}}
	}
	count := length / window
	result := make([]Window, 0, count)
	for i := 0; i < count; i++ {
		start := i * length / count
		end := (i+1)*length/count - 1
		result = append(result, Window{Start: start, End: end})
	}
	return result
}
