package repository

import "testing"

func TestFilterID(t *testing.T) {
	cases := []struct {
		name   string
		filter Filter
		wantID string
		wantOK bool
	}{
		{"direct id", Filter{"id": "7"}, "7", true},
		{"id with other criteria", Filter{"id": "7", "active": true}, "7", true},
		{"no id", Filter{"name": "ana"}, "", false},
		{"non-string id", Filter{"id": 7}, "", false},
		{"empty id", Filter{"id": ""}, "", false},
		{"nil filter", nil, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := tc.filter.ID()
			if id != tc.wantID || ok != tc.wantOK {
				t.Fatalf("ID() = (%q, %v), want (%q, %v)", id, ok, tc.wantID, tc.wantOK)
			}
		})
	}
}

func TestFilterExactID(t *testing.T) {
	if id, ok := (Filter{"id": "7"}).ExactID(); !ok || id != "7" {
		t.Fatalf("id-only filter not recognized: (%q, %v)", id, ok)
	}
	if _, ok := (Filter{"id": "7", "active": true}).ExactID(); ok {
		t.Fatalf("compound filter treated as exact id")
	}
	if _, ok := (Filter{}).ExactID(); ok {
		t.Fatalf("empty filter treated as exact id")
	}
}

func TestUpdateSetClause(t *testing.T) {
	set, ok := (Update{"$set": map[string]any{"name": "x"}}).SetClause()
	if !ok || set["name"] != "x" {
		t.Fatalf("SetClause() = (%v, %v)", set, ok)
	}
	if _, ok := (Update{"name": "x"}).SetClause(); ok {
		t.Fatalf("flat update reported a $set clause")
	}
}

func TestUpdateID(t *testing.T) {
	if id, ok := (Update{"id": "9"}).ID(); !ok || id != "9" {
		t.Fatalf("top-level id not found: (%q, %v)", id, ok)
	}
	if id, ok := (Update{"$set": map[string]any{"id": "9"}}).ID(); !ok || id != "9" {
		t.Fatalf("$set id not found: (%q, %v)", id, ok)
	}
	if _, ok := (Update{"name": "x"}).ID(); ok {
		t.Fatalf("id reported where none exists")
	}
}

func TestUpdateIsEmpty(t *testing.T) {
	if !(Update{}).IsEmpty() {
		t.Fatalf("empty update not detected")
	}
	if !(Update{"$set": map[string]any{}}).IsEmpty() {
		t.Fatalf("empty $set not detected")
	}
	if (Update{"name": "x"}).IsEmpty() {
		t.Fatalf("effective update reported empty")
	}
	if (Update{"$set": map[string]any{"name": "x"}}).IsEmpty() {
		t.Fatalf("effective $set reported empty")
	}
}

func TestUpdateFields(t *testing.T) {
	flat := Update{"name": "x"}
	if got := flat.Fields(); got["name"] != "x" {
		t.Fatalf("flat Fields() = %v", got)
	}
	set := Update{"$set": map[string]any{"name": "y"}}
	if got := set.Fields(); got["name"] != "y" {
		t.Fatalf("$set Fields() = %v", got)
	}
}

func TestFilterClone_Isolated(t *testing.T) {
	orig := Filter{"id": "1"}
	c := orig.Clone()
	c["extra"] = true
	if _, ok := orig["extra"]; ok {
		t.Fatalf("clone shares storage with the original")
	}
}
