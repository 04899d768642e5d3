// Package pagination provides page requests, page envelopes, and list
// filtering.
package pagination

import (
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Page request defaults.
const (
	DefaultSize = 20
	MaxSize     = 2000

	maxPage = math.MaxInt64 / MaxSize
)

// Query parameters read by [Parse].
const (
	PageParam   = "page"
	SizeParam   = "size"
	SortParam   = "sort"
	FilterParam = "filter"
)

// ParamError is an error related to a page request parameter. The error
// message names the parameter but does not reveal internal details; use
// [errors.Unwrap] to access the cause.
type ParamError struct {
	Param string
	cause error
}

// Error satisfies [error].
func (perr ParamError) Error() string {
	return fmt.Sprintf("invalid %s parameter", perr.Param)
}

// Unwrap returns the underlying cause of the parameter error.
func (perr ParamError) Unwrap() error {
	return perr.cause
}

// Sort orders a page by a single property.
type Sort struct {
	Property string
	Desc     bool
}

// Pageable is a request for a zero-indexed page of results.
type Pageable struct {
	Page   int64
	Size   int64
	Sort   Sort
	Filter string
}

// Offset returns the number of results preceding the page.
func (p Pageable) Offset() int64 {
	return p.Page * p.Size
}

// Parse reads a [Pageable] from query values. Out-of-range or non-numeric
// page and size values fall back to their defaults and size is capped at
// [MaxSize]. The sort parameter has the form "property[,asc|desc]" and the
// property must be one of sortable; the first sortable property is used when
// sort is absent.
func Parse(values url.Values, sortable ...string) (Pageable, error) {
	pageable := Pageable{
		Page:   parseInt(values.Get(PageParam), 0),
		Size:   parseInt(values.Get(SizeParam), DefaultSize),
		Filter: strings.TrimSpace(values.Get(FilterParam)),
	}
	pageable.Page = min(max(pageable.Page, 0), maxPage)
	switch {
	case pageable.Size < 1:
		pageable.Size = DefaultSize
	case pageable.Size > MaxSize:
		pageable.Size = MaxSize
	}

	sort, err := parseSort(values.Get(SortParam), sortable)
	if err != nil {
		return Pageable{}, ParamError{Param: SortParam, cause: err}
	}
	pageable.Sort = sort
	return pageable, nil
}

func parseInt(raw string, def int64) int64 {
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return val
}

func parseSort(raw string, sortable []string) (Sort, error) {
	var sort Sort
	if len(sortable) > 0 {
		sort.Property = sortable[0]
	}
	if raw == "" {
		return sort, nil
	}
	prop, dir, _ := strings.Cut(raw, ",")
	prop = strings.TrimSpace(prop)
	if !slices.Contains(sortable, prop) {
		return sort, fmt.Errorf("unknown sort property %q", prop)
	}
	sort.Property = prop
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
	case "desc":
		sort.Desc = true
	default:
		return sort, fmt.Errorf("unknown sort direction %q", dir)
	}
	return sort, nil
}

// Page is a page of results along with its position in the full result set.
type Page[T any] struct {
	Content          []T   `json:"content"`
	TotalElements    int64 `json:"totalElements"`
	TotalPages       int64 `json:"totalPages"`
	Number           int64 `json:"number"`
	Size             int64 `json:"size"`
	NumberOfElements int   `json:"numberOfElements"`
	First            bool  `json:"first"`
	Last             bool  `json:"last"`
	Empty            bool  `json:"empty"`
}

// NewPage wraps content, the results for pageable out of total results.
func NewPage[T any](content []T, pageable Pageable, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	var pages int64
	if pageable.Size > 0 {
		pages = (total + pageable.Size - 1) / pageable.Size
	}
	return Page[T]{
		Content:          content,
		TotalElements:    total,
		TotalPages:       pages,
		Number:           pageable.Page,
		Size:             pageable.Size,
		NumberOfElements: len(content),
		First:            pageable.Page == 0,
		Last:             pageable.Page+1 >= pages,
		Empty:            len(content) == 0,
	}
}

// Slice returns the window of items selected by pageable.
func Slice[T any](items []T, pageable Pageable) []T {
	total := int64(len(items))
	start := min(pageable.Offset(), total)
	end := min(start+pageable.Size, total)
	return items[start:end]
}
