package leads

import (
	"cmp"
	"slices"
	"strings"

	"github.com/ettle/strcase"
)

// Sort directions.
const (
	SortAscending  = "ascending"
	SortDescending = "descending"
)

// Sortable lead table columns.
const (
	SortByID         = "id"
	SortByName       = "name"
	SortByEmail      = "email"
	SortByDepartment = "department"
	SortByStatus     = "status"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// SortState is the active column and direction of the lead table.
type SortState struct {
	Key       string `json:"key"`
	Direction string `json:"direction"`
}

// DefaultSort orders leads by name, ascending.
func DefaultSort() SortState {
	return SortState{Key: SortByName, Direction: SortAscending}
}

// ToggleSort returns the next state after a column header is chosen: the same key flips
// ascending to descending, anything else starts ascending on the new key.
func ToggleSort(current SortState, key string) SortState {
	key = NormalizeSortKey(key)
	if key == "" {
		return current
	}
	if current.Key == key && current.Direction == SortAscending {
		return SortState{Key: key, Direction: SortDescending}
	}
	return SortState{Key: key, Direction: SortAscending}
}

// NormalizeSortKey maps user input such as "Department" or "lead-name" onto a column key.
// Unknown keys yield "".
func NormalizeSortKey(key string) string {
	key = strcase.ToSnake(strings.TrimSpace(key))
	key = strings.TrimPrefix(key, "lead_")
	switch key {
	case SortByID, SortByName, SortByEmail, SortByDepartment, SortByStatus:
		return key
	case "company", "company_name":
		return SortByDepartment
	case "work_email":
		return SortByEmail
	default:
		return ""
	}
}

// TableQuery filters, sorts and pages lead records.
type TableQuery struct {
	Search    string `json:"search" query:"search"`
	SortKey   string `json:"sort" query:"sort"`
	Direction string `json:"direction" query:"direction"`
	Page      int    `json:"page" query:"page"`
	PageSize  int    `json:"page_size" query:"page_size"`
}

// TablePage is one page of the lead table.
type TablePage struct {
	Rows     []LeadRecord `json:"rows"`
	Total    int          `json:"total"`
	Filtered int          `json:"filtered"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Pages    int          `json:"pages"`
	Sort     SortState    `json:"sort"`
	Search   string       `json:"search,omitempty"`
}

// Normalize fills defaults and clamps paging values.
func (q TableQuery) Normalize() TableQuery {
	q.Search = strings.TrimSpace(q.Search)
	if key := NormalizeSortKey(q.SortKey); key != "" {
		q.SortKey = key
	} else {
		q.SortKey = DefaultSort().Key
	}
	switch strings.ToLower(strings.TrimSpace(q.Direction)) {
	case SortDescending, "desc":
		q.Direction = SortDescending
	default:
		q.Direction = SortAscending
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return q
}

// QueryTable applies search, sort and pagination to records. The input is not modified.
func QueryTable(records []LeadRecord, query TableQuery) TablePage {
	query = query.Normalize()
	filtered := FilterLeads(records, query.Search)
	SortLeads(filtered, SortState{Key: query.SortKey, Direction: query.Direction})

	pages := (len(filtered) + query.PageSize - 1) / query.PageSize
	page := min(query.Page, max(pages, 1))
	start := (page - 1) * query.PageSize
	end := min(start+query.PageSize, len(filtered))
	rows := []LeadRecord{}
	if start < end {
		rows = append(rows, filtered[start:end]...)
	}
	return TablePage{
		Rows:     rows,
		Total:    len(records),
		Filtered: len(filtered),
		Page:     page,
		PageSize: query.PageSize,
		Pages:    pages,
		Sort:     SortState{Key: query.SortKey, Direction: query.Direction},
		Search:   query.Search,
	}
}

// FilterLeads keeps records whose name, email or department contains search, ignoring case.
// It always returns a new slice.
func FilterLeads(records []LeadRecord, search string) []LeadRecord {
	needle := normalizeSearch(search)
	out := make([]LeadRecord, 0, len(records))
	for _, rec := range records {
		if needle == "" ||
			strings.Contains(strings.ToLower(rec.Name), needle) ||
			strings.Contains(strings.ToLower(rec.Email), needle) ||
			strings.Contains(strings.ToLower(rec.Department), needle) {
			out = append(out, rec)
		}
	}
	return out
}

// SortLeads sorts records in place. Equal keys keep their relative order.
func SortLeads(records []LeadRecord, state SortState) {
	key := NormalizeSortKey(state.Key)
	if key == "" {
		key = SortByName
	}
	desc := state.Direction == SortDescending
	slices.SortStableFunc(records, func(a, b LeadRecord) int {
		c := compareLeads(a, b, key)
		if desc {
			return -c
		}
		return c
	})
}

func compareLeads(a, b LeadRecord, key string) int {
	switch key {
	case SortByID:
		return cmp.Compare(a.ID, b.ID)
	case SortByEmail:
		return compareFold(a.Email, b.Email)
	case SortByDepartment:
		return compareFold(a.Department, b.Department)
	case SortByStatus:
		return compareFold(a.Status, b.Status)
	default:
		return compareFold(a.Name, b.Name)
	}
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
