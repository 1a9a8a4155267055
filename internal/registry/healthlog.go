package registry

import "time"

// HealthLogEntry is one observed health outcome for a service. The log
// is display-only; admission decisions never read it.
type HealthLogEntry struct {
	At           time.Time `json:"at"`
	Status       Status    `json:"status"`
	HTTPStatus   int       `json:"httpStatus,omitempty"`
	ResponseTime float64   `json:"responseTimeMs"`
	Error        string    `json:"error,omitempty"`
}

// healthLog is a fixed-capacity ring buffer of health outcomes with FIFO
// eviction. Not safe for concurrent use; the owning registry entry's
// lock serializes access.
type healthLog struct {
	entries []HealthLogEntry
	head    int
	size    int
}

func newHealthLog(capacity int) *healthLog {
	if capacity < 1 {
		capacity = 1
	}
	return &healthLog{entries: make([]HealthLogEntry, capacity)}
}

// append records an entry, evicting the oldest when full.
func (l *healthLog) append(e HealthLogEntry) {
	if l.size < len(l.entries) {
		l.entries[(l.head+l.size)%len(l.entries)] = e
		l.size++
		return
	}
	l.entries[l.head] = e
	l.head = (l.head + 1) % len(l.entries)
}

// snapshot returns entries oldest-first.
func (l *healthLog) snapshot() []HealthLogEntry {
	out := make([]HealthLogEntry, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.entries[(l.head+i)%len(l.entries)]
	}
	return out
}

// clear drops all entries.
func (l *healthLog) clear() {
	l.head = 0
	l.size = 0
}
