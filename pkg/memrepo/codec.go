package memrepo

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-repository-uow/repository"
)

// toDoc flattens an entity into a document through its JSON form, so
// matching and patching stay purely document-level.
func toDoc(v any) (document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// fromDoc materializes a fresh entity from a document, applying the
// projection first when one is requested. NewRecord must return a pointer
// type for the unmarshal to land.
func fromDoc[T any](h repository.Handlers[T], doc document, projection repository.Projection) (T, error) {
	rec := h.NewRecord()
	if projection != nil {
		doc = project(doc, projection)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, any(rec)); err != nil {
		return rec, err
	}
	return rec, nil
}

func project(doc document, projection repository.Projection) document {
	out := make(document, len(projection)+1)
	for _, field := range projection {
		if v, ok := doc[field]; ok {
			out[field] = v
		}
	}
	// identity always survives a projection
	if v, ok := doc[repository.IDField]; ok {
		out[repository.IDField] = v
	}
	return out
}

// matches applies equality matching: every filter field must equal the
// document field. A nil filter value matches documents where the field is
// absent or null. Values are compared through their string form, which
// papers over the int/float64 skew the JSON round-trip introduces.
func matches(doc document, filter repository.Filter) bool {
	for k, want := range filter {
		got, present := doc[k]
		if want == nil {
			if present && got != nil {
				return false
			}
			continue
		}
		if !present || got == nil {
			return false
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}
