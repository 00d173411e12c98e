package eia

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"

	"github.com/eiadata/go-client/pkg/request"
	"github.com/eiadata/go-client/pkg/table"
)

// CategoryEndpoint is the path of the category API.
const CategoryEndpoint = "category/"

// CategoryID identifies a category.
// The API returns it as a string in some places and as a number in others.
type CategoryID string

func (v *CategoryID) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	str, err := cast.ToStringE(raw)
	if err != nil {
		return fmt.Errorf("unexpected category id: %w", err)
	}
	*v = CategoryID(str)
	return nil
}

// Category is a node of the category tree with its child categories and child series.
type Category struct {
	CategoryID       CategoryID      `json:"category_id"`
	ParentCategoryID CategoryID      `json:"parent_category_id"`
	Name             string          `json:"name"`
	Notes            string          `json:"notes"`
	ChildCategories  []*CategoryNode `json:"childcategories"`
	ChildSeries      []*SeriesInfo   `json:"childseries"`
}

// CategoryNode is a reference to a child category.
type CategoryNode struct {
	CategoryID CategoryID `json:"category_id"`
	Name       string     `json:"name"`
}

// SeriesInfo is the metadata of a series listed in a category, without observations.
type SeriesInfo struct {
	SeriesID  string `json:"series_id"`
	Name      string `json:"name"`
	Frequency string `json:"f"`
	Units     string `json:"units"`
	Updated   Time   `json:"updated"`
}

// categoryResult is the category response, request metadata outside the category is discarded.
type categoryResult struct {
	Category *Category `json:"category"`
}

// CategoryChild is one row of the category listing, either a child category or a child series.
type CategoryChild struct {
	ID   string
	Name string
	Kind string // "category" or "series"

	// Frequency, Units and Updated are set for the "series" kind only.
	Frequency string
	Units     string
	Updated   string
}

// CategoryQuery is a request for one node of the category tree.
type CategoryQuery struct {
	api *API
	id  string
}

// Category is a shortcut for the NewCategoryQuery function.
func (a *API) Category(categoryID string) *CategoryQuery {
	return NewCategoryQuery(a, categoryID)
}

// NewCategoryQuery creates a query for the category with the given identifier.
// An empty identifier queries the root of the category tree.
func NewCategoryQuery(api *API, categoryID string) *CategoryQuery {
	return &CategoryQuery{api: api, id: categoryID}
}

// GetRequest creates a request for the category with its child categories and child series.
func (q *CategoryQuery) GetRequest() request.APIRequest[*Category] {
	params := make(map[string]string)
	if q.id != "" {
		params["category_id"] = q.id
	}

	result := &categoryResult{}
	out := &Category{}
	httpRequest := q.api.fetchRequest(CategoryEndpoint, params).
		WithResult(result).
		WithOnSuccess(func(ctx context.Context, response request.HTTPResponse) error {
			if result.Category == nil {
				return fmt.Errorf(`category "%s" not found in the response`, q.id)
			}
			*out = *result.Category
			return nil
		})
	return request.NewAPIRequest(out, httpRequest)
}

// Get is a shortcut for GetRequest().Send(ctx).
func (q *CategoryQuery) Get(ctx context.Context) (*Category, error) {
	return q.GetRequest().Send(ctx)
}

// CategoryTree is a category together with its recursively fetched child categories.
type CategoryTree struct {
	*Category
	Children []*CategoryTree
}

// Tree fetches the category and its descendants, maxDepth levels below the root.
// The categories of one level are fetched concurrently, the first error aborts
// the whole walk and is returned.
func (q *CategoryQuery) Tree(ctx context.Context, maxDepth int) (*CategoryTree, error) {
	root := &CategoryTree{}
	grp := request.NewRunGroup(ctx, q.api.sender)
	q.api.addTreeRequest(grp, root, q.id, maxDepth)
	if err := grp.RunAndWait(); err != nil {
		return nil, err
	}
	return root, nil
}

func (a *API) addTreeRequest(grp *request.RunGroup, node *CategoryTree, id string, depth int) {
	grp.Add(NewCategoryQuery(a, id).GetRequest().WithOnSuccess(func(ctx context.Context, category *Category) error {
		node.Category = category
		if depth < 1 {
			return nil
		}
		// Each child request fills its own node, the walk shares no other state
		node.Children = make([]*CategoryTree, len(category.ChildCategories))
		for i, child := range category.ChildCategories {
			childNode := &CategoryTree{}
			node.Children[i] = childNode
			a.addTreeRequest(grp, childNode, string(child.CategoryID), depth-1)
		}
		return nil
	}))
}

// List returns the category children, child categories first, then child series.
func (q *CategoryQuery) List(ctx context.Context) ([]*CategoryChild, error) {
	category, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*CategoryChild, 0, len(category.ChildCategories)+len(category.ChildSeries))
	for _, child := range category.ChildCategories {
		out = append(out, &CategoryChild{ID: string(child.CategoryID), Name: child.Name, Kind: "category"})
	}
	for _, child := range category.ChildSeries {
		row := &CategoryChild{
			ID:        child.SeriesID,
			Name:      child.Name,
			Kind:      "series",
			Frequency: child.Frequency,
			Units:     child.Units,
		}
		if !child.Updated.IsZero() {
			row.Updated = child.Updated.String()
		}
		out = append(out, row)
	}
	return out, nil
}

// Table returns the category children as a table with the "id", "name" and
// "kind" columns. By default, the series metadata columns "f", "units" and
// "updated" are included, use the WithoutMetadata option to drop them.
func (q *CategoryQuery) Table(ctx context.Context, opts ...TableOption) (*table.Table, error) {
	cfg := newTableConfig(opts)
	children, err := q.List(ctx)
	if err != nil {
		return nil, err
	}

	header := []string{"id", "name", "kind"}
	if cfg.includeMetadata {
		header = append(header, "f", "units", "updated")
	}

	out := table.New(header...)
	for _, child := range children {
		out.AddRow(categoryRow{child: child, metadata: cfg.includeMetadata})
	}
	return out, nil
}

type categoryRow struct {
	child    *CategoryChild
	metadata bool
}

func (r categoryRow) Cells() []string {
	out := []string{r.child.ID, r.child.Name, r.child.Kind}
	if r.metadata {
		out = append(out, r.child.Frequency, r.child.Units, r.child.Updated)
	}
	return out
}
