// Package pathmap builds the derived remote Hierarchy from a flat document
// listing and maps it to local relative paths (spec.md §3, §4.2, C2).
package pathmap

import (
	"sort"

	"github.com/eykd/outlinesync/internal/model"
)

// BuildHierarchy constructs a Hierarchy from a flat remote listing. It
// refuses a parent-id cycle (InvariantViolation) rather than risk an
// infinite walk downstream in Assign.
func BuildHierarchy(docs []model.RemoteDoc) (*model.Hierarchy, error) {
	h := &model.Hierarchy{Entries: make(map[string]*model.HierarchyEntry, len(docs))}

	for _, d := range docs {
		h.Entries[d.ID] = &model.HierarchyEntry{Doc: d}
	}

	for _, d := range docs {
		if d.ParentID == "" {
			h.Roots = append(h.Roots, d.ID)
			continue
		}
		parent, ok := h.Entries[d.ParentID]
		if !ok {
			// parentId refers to a document outside the collection: treat as root.
			h.Roots = append(h.Roots, d.ID)
			continue
		}
		parent.Children = append(parent.Children, d.ID)
		parent.IsParent = true
	}

	for id, e := range h.Entries {
		if err := checkAcyclic(h, id, map[string]bool{}); err != nil {
			return nil, err
		}
		_ = e
	}

	assignDepths(h)
	return h, nil
}

func checkAcyclic(h *model.Hierarchy, id string, visiting map[string]bool) error {
	if visiting[id] {
		return &model.InvariantViolation{Msg: "parent id cycle detected at " + id}
	}
	visiting[id] = true
	e := h.Entries[id]
	if e != nil && e.Doc.ParentID != "" {
		if _, ok := h.Entries[e.Doc.ParentID]; ok {
			return checkAcyclic(h, e.Doc.ParentID, visiting)
		}
	}
	return nil
}

func assignDepths(h *model.Hierarchy) {
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		e := h.Entries[id]
		if e == nil {
			return
		}
		e.Depth = depth
		for _, c := range e.Children {
			walk(c, depth+1)
		}
	}
	roots := append([]string(nil), h.Roots...)
	sort.Strings(roots)
	for _, r := range roots {
		walk(r, 0)
	}
}
