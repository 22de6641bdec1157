package lead

var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress},
	StatusInProgress: {StatusCompleted, StatusFailed, StatusPending},
	StatusFailed:     {StatusPending},
}

// CanTransition reports whether moving a candidate from one status to another is
// permitted. in_progress -> pending is the stale-claim reset and failed -> pending is an
// explicit retry; completed is terminal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no worker will move the candidate out of s on its own.
func Terminal(s Status) bool {
	return s == StatusCompleted || s == StatusFailed
}
