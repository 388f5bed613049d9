package rbac

import "sort"

// PermissionSet is a set of permission ids. The zero value is not usable; use
// NewPermissionSet.
type PermissionSet map[int64]struct{}

// NewPermissionSet builds a set holding ids.
func NewPermissionSet(ids ...int64) PermissionSet {
	set := make(PermissionSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s PermissionSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s PermissionSet) Add(ids ...int64) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s PermissionSet) Remove(ids ...int64) {
	for _, id := range ids {
		delete(s, id)
	}
}

// Toggle flips membership of id and reports whether it is now present.
func (s PermissionSet) Toggle(id int64) bool {
	if s.Has(id) {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

// Union returns a new set with the members of both sets.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	out := s.Clone()
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Intersect returns a new set with the members present in both sets.
func (s PermissionSet) Intersect(other PermissionSet) PermissionSet {
	out := NewPermissionSet()
	for id := range s {
		if other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// ContainsAll reports whether every member of other is in s. An empty other
// is contained in any set.
func (s PermissionSet) ContainsAll(other PermissionSet) bool {
	for id := range other {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

func (s PermissionSet) Len() int {
	return len(s)
}

// IDs returns the members in ascending order.
func (s PermissionSet) IDs() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}
