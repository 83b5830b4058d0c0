package memory

import "github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"

// index maintains the secondary tag and category indexes over the record
// store. It is owned by the Store and always accessed under the store lock.
//
// Writes are add-only: updating a record's tags adds new index entries but
// does not remove entries for dropped tags. Eviction purges a record from
// every index, and query candidate resolution filters ids that no longer
// resolve to a live record, so stale entries are tolerated.
type index struct {
	byTag      map[string]map[string]struct{}
	byCategory map[types.MemoryCategory]map[string]struct{}
}

func newIndex() *index {
	return &index{
		byTag:      make(map[string]map[string]struct{}),
		byCategory: make(map[types.MemoryCategory]map[string]struct{}),
	}
}

// add indexes a record by its category and all of its tags.
func (ix *index) add(rec *types.MemoryRecord) {
	set, ok := ix.byCategory[rec.Category]
	if !ok {
		set = make(map[string]struct{})
		ix.byCategory[rec.Category] = set
	}
	set[rec.ID] = struct{}{}

	ix.addTags(rec.ID, rec.Tags)
}

// addTags indexes a record id under the given tags.
func (ix *index) addTags(id string, tags []string) {
	for _, tag := range tags {
		set, ok := ix.byTag[tag]
		if !ok {
			set = make(map[string]struct{})
			ix.byTag[tag] = set
		}
		set[id] = struct{}{}
	}
}

// remove purges a record id from the category and every tag index.
// The full tag scan is deliberate: tag writes are add-only, so the record
// may be indexed under tags it no longer carries.
func (ix *index) remove(rec *types.MemoryRecord) {
	if set, ok := ix.byCategory[rec.Category]; ok {
		delete(set, rec.ID)
		if len(set) == 0 {
			delete(ix.byCategory, rec.Category)
		}
	}

	for tag, set := range ix.byTag {
		delete(set, rec.ID)
		if len(set) == 0 {
			delete(ix.byTag, tag)
		}
	}
}

// idsForCategories returns the union of ids indexed under any of the given
// categories.
func (ix *index) idsForCategories(categories []types.MemoryCategory) map[string]struct{} {
	out := make(map[string]struct{})
	for _, c := range categories {
		for id := range ix.byCategory[c] {
			out[id] = struct{}{}
		}
	}
	return out
}

// idsForTags returns the union of ids indexed under any of the given tags.
func (ix *index) idsForTags(tags []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range tags {
		for id := range ix.byTag[t] {
			out[id] = struct{}{}
		}
	}
	return out
}
