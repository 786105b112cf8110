package schema

// Reconcile splits the table's current columns into the set to keep and
// the set to drop, given the caller-supplied keep-list.
//
// Kept columns follow the keep-list's order filtered to columns that
// actually exist, not the table's declared order; the rebuilt table is
// laid out in keep-list order. Requested names absent from the table are
// silently ignored. Dropped names come back in the table's declared
// order. An empty dropped slice means there is nothing to do.
func Reconcile(current []Column, keep []string) (kept []Column, dropped []string) {
	byName := make(map[string]Column, len(current))
	for _, c := range current {
		byName[c.Name] = c
	}

	keeping := make(map[string]bool, len(keep))
	for _, name := range keep {
		c, ok := byName[name]
		if !ok || keeping[name] {
			continue
		}
		keeping[name] = true
		kept = append(kept, c)
	}

	for _, c := range current {
		if !keeping[c.Name] {
			dropped = append(dropped, c.Name)
		}
	}
	return kept, dropped
}
