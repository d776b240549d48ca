package engine

// Candidates keeps the artifacts that used the most tricks and, among
// those, the ones sharing the smallest status string. Statuses compare
// as strings, not numbers.
func Candidates(artifacts []Artifact) []Artifact {
	most := -1
	for _, a := range artifacts {
		if len(a.Used) > most {
			most = len(a.Used)
		}
	}
	var best []Artifact
	for _, a := range artifacts {
		if len(a.Used) == most {
			best = append(best, a)
		}
	}
	if len(best) == 0 {
		return nil
	}
	lowest := best[0].Status
	for _, a := range best[1:] {
		if a.Status < lowest {
			lowest = a.Status
		}
	}
	out := best[:0]
	for _, a := range best {
		if a.Status == lowest {
			out = append(out, a)
		}
	}
	return out
}

// Resolve picks the winning artifact. pick(n) chooses among the n
// artifacts left after Candidates; it is not called when one remains.
// An empty input yields the NoTrick sentinel.
func Resolve(artifacts []Artifact, pick func(n int) int) Artifact {
	best := Candidates(artifacts)
	switch len(best) {
	case 0:
		return NoTrick()
	case 1:
		return best[0]
	default:
		return best[pick(len(best))]
	}
}
