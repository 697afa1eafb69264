package coding

import "github.com/meridian-cg/coding-portal/internal/model"

// RecentLimit is how many ids each category keeps.
const RecentLimit = 5

// Reference-data categories tracked for recency.
type RecentCategory string

const (
	RecentCompanies  RecentCategory = "companies"
	RecentGLAccounts RecentCategory = "gl_accounts"
	RecentJobs       RecentCategory = "jobs"
	RecentEquipment  RecentCategory = "equipment"
)

// RecentlyUsed is a bounded most-recent-first set of reference ids.
// Touching an existing id moves it to the front without growing the set.
type RecentlyUsed struct {
	ids   []int64
	limit int
}

func NewRecentlyUsed(limit int) *RecentlyUsed {
	if limit <= 0 {
		limit = RecentLimit
	}
	return &RecentlyUsed{limit: limit}
}

// Touch records id as the most recently used.
func (r *RecentlyUsed) Touch(id int64) {
	for i, existing := range r.ids {
		if existing == id {
			copy(r.ids[1:i+1], r.ids[:i])
			r.ids[0] = id
			return
		}
	}
	r.ids = append([]int64{id}, r.ids...)
	if len(r.ids) > r.limit {
		r.ids = r.ids[:r.limit]
	}
}

// IDs returns the tracked ids, most recent first.
func (r *RecentlyUsed) IDs() []int64 {
	out := make([]int64, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns how many ids are tracked.
func (r *RecentlyUsed) Len() int {
	return len(r.ids)
}

// RecentTracker holds one RecentlyUsed set per reference-data category. It
// belongs to a coding session and is passed explicitly, never shared as
// ambient global state.
type RecentTracker struct {
	byCategory map[RecentCategory]*RecentlyUsed
}

func NewRecentTracker() *RecentTracker {
	return &RecentTracker{byCategory: map[RecentCategory]*RecentlyUsed{}}
}

// Touch records an id under the given category.
func (t *RecentTracker) Touch(category RecentCategory, id int64) {
	set, ok := t.byCategory[category]
	if !ok {
		set = NewRecentlyUsed(RecentLimit)
		t.byCategory[category] = set
	}
	set.Touch(id)
}

// IDs returns the tracked ids for a category, most recent first.
func (t *RecentTracker) IDs(category RecentCategory) []int64 {
	set, ok := t.byCategory[category]
	if !ok {
		return nil
	}
	return set.IDs()
}

// Record touches every reference id populated on a saved assignment.
func (t *RecentTracker) Record(a model.CodingAssignment) {
	if a.CompanyID != nil {
		t.Touch(RecentCompanies, *a.CompanyID)
	}
	if a.GLAccountID != nil {
		t.Touch(RecentGLAccounts, *a.GLAccountID)
	}
	if a.JobID != nil {
		t.Touch(RecentJobs, *a.JobID)
	}
	if a.EquipmentID != nil {
		t.Touch(RecentEquipment, *a.EquipmentID)
	}
}
