package scoring

import "sync"

// MaxHistory is how many passport runs a business keeps.
const MaxHistory = 5

// History holds the most recent passports, newest first.
type History struct {
	mu    sync.Mutex
	items []Result
}

// Push records r as the newest run and drops anything past MaxHistory.
func (h *History) Push(r Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = PrependHistory(h.items, r)
}

func (h *History) Items() []Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Result, len(h.items))
	copy(out, h.items)
	return out
}

func (h *History) Latest() (Result, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.items) == 0 {
		return Result{}, false
	}
	return h.items[0], true
}

// PrependHistory returns a new slice with r in front of runs, trimmed to MaxHistory.
func PrependHistory(runs []Result, r Result) []Result {
	n := len(runs) + 1
	if n > MaxHistory {
		n = MaxHistory
	}
	out := make([]Result, 0, n)
	out = append(out, r)
	for _, run := range runs {
		if len(out) == MaxHistory {
			break
		}
		out = append(out, run)
	}
	return out
}
