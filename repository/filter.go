package repository

// IDField is the document field holding an entity's unique identifier.
const IDField = "id"

// SetOperator marks the portion of an update document that assigns fields.
const SetOperator = "$set"

// Filter is an opaque structured query document. Callers build it as a plain
// map; the core only inspects it through the narrow probes below and
// otherwise passes it through to the store untouched.
type Filter map[string]any

// ID returns the direct id carried by the filter, if any. The id may appear
// alongside other criteria.
func (f Filter) ID() (string, bool) {
	v, ok := f[IDField]
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// ExactID reports whether the filter is exactly an id-only lookup: a single
// key naming the id field and nothing else.
func (f Filter) ExactID() (string, bool) {
	if len(f) != 1 {
		return "", false
	}
	return f.ID()
}

// Clone returns a shallow copy so decorators can rewrite criteria without
// mutating the caller's document.
func (f Filter) Clone() Filter {
	if f == nil {
		return nil
	}
	out := make(Filter, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Update is an opaque update document. It may be a flat partial document or
// carry a $set clause; the probes below are the only inspection the core does.
type Update map[string]any

// SetClause returns the $set portion of the update document, if present.
func (u Update) SetClause() (map[string]any, bool) {
	v, ok := u[SetOperator]
	if !ok {
		return nil, false
	}
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Update:
		return m, true
	}
	return nil, false
}

// ID returns the id carried by the update document, checking the top level
// first and then the $set clause.
func (u Update) ID() (string, bool) {
	if v, ok := u[IDField]; ok {
		if id, ok := v.(string); ok && id != "" {
			return id, true
		}
	}
	if set, ok := u.SetClause(); ok {
		if v, ok := set[IDField]; ok {
			if id, ok := v.(string); ok && id != "" {
				return id, true
			}
		}
	}
	return "", false
}

// IsEmpty reports whether the update carries no effective changes. An update
// consisting only of an empty $set clause counts as empty.
func (u Update) IsEmpty() bool {
	if len(u) == 0 {
		return true
	}
	if len(u) == 1 {
		if set, ok := u.SetClause(); ok {
			return len(set) == 0
		}
	}
	return false
}

// Clone returns a shallow copy so decorators can stamp fields without
// mutating the caller's document.
func (u Update) Clone() Update {
	if u == nil {
		return nil
	}
	out := make(Update, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}

// Fields flattens the update into the field assignments it performs: the
// $set clause when present, otherwise the document itself.
func (u Update) Fields() map[string]any {
	if set, ok := u.SetClause(); ok {
		return set
	}
	return u
}
