package product

// Snapshot holds the canonical current value of every mutable field.
type Snapshot map[Field]string

type FieldChange struct {
	Field Field
	Old   string
	New   string
}

type Changes []FieldChange

func (c Changes) IsEmpty() bool { return len(c) == 0 }

func (c Changes) Get(f Field) (FieldChange, bool) {
	for _, ch := range c {
		if ch.Field == f {
			return ch, true
		}
	}
	return FieldChange{}, false
}

func (c Changes) Fields() []Field {
	out := make([]Field, len(c))
	for i, ch := range c {
		out[i] = ch.Field
	}
	return out
}

// Without drops the changes touching f.
func (c Changes) Without(f Field) Changes {
	out := make(Changes, 0, len(c))
	for _, ch := range c {
		if ch.Field != f {
			out = append(out, ch)
		}
	}
	return out
}

// ComputeDelta reports the allow-listed fields of proposed whose canonical
// value differs from current. Unknown keys and malformed values are dropped.
func ComputeDelta(current Snapshot, proposed map[string]any) Changes {
	changes := Changes{}
	for _, f := range MutableFields {
		raw, ok := proposed[string(f)]
		if !ok {
			continue
		}
		next, ok := Canonical(f, raw)
		if !ok {
			continue
		}
		if prev := current[f]; prev != next {
			changes = append(changes, FieldChange{Field: f, Old: current[f], New: next})
		}
	}
	return changes
}
