package detect

import "authwatch/pkg/models"

// group is one bucket of an index: the key and the positions of its events
// in the EventSet, in input order.
type group struct {
	key     string
	members []int
}

// index is the first pass of a two-pass aggregation: events bucketed by key,
// keys kept in order of first appearance so reduction output is deterministic.
type index struct {
	groups []*group
	byKey  map[string]*group
}

func buildIndex(events models.EventSet, keep func(models.Event) bool, key func(models.Event) string) *index {
	idx := &index{byKey: make(map[string]*group)}
	for i, ev := range events {
		if keep != nil && !keep(ev) {
			continue
		}
		k := key(ev)
		g, ok := idx.byKey[k]
		if !ok {
			g = &group{key: k}
			idx.byKey[k] = g
			idx.groups = append(idx.groups, g)
		}
		g.members = append(g.members, i)
	}
	return idx
}

func bySourceIP(ev models.Event) string {
	return ev.SourceIP
}

func failedOnly(ev models.Event) bool {
	return ev.IsFailedLogin
}
