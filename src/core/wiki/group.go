package wiki

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// FlatGroup is a group flattened out of the tree for display, with Depth
// carrying the nesting level.
type FlatGroup struct {
	Group
	Depth int
}

// GroupService manages the hierarchical article group tree
type GroupService struct {
	groups GroupRepository
}

func NewGroupService(groups GroupRepository) *GroupService {
	return &GroupService{groups: groups}
}

func (s *GroupService) Create(ctx context.Context, input GroupInput) (*Group, error) {
	if input.ParentID != "" {
		if _, err := s.groups.Get(ctx, input.ParentID); err != nil {
			return nil, err
		}
	}

	group := &Group{
		ID:             uuid.New().String(),
		Name:           input.Name,
		ParentID:       input.ParentID,
		PromptTemplate: input.PromptTemplate,
		SortOrder:      input.SortOrder,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return group, nil
}

func (s *GroupService) Get(ctx context.Context, id string) (*Group, error) {
	return s.groups.Get(ctx, id)
}

// ListFlat returns the group tree flattened depth-first, siblings ordered by
// sort order and then name. Orphaned subtrees are appended at root level so
// nothing silently disappears from listings.
func (s *GroupService) ListFlat(ctx context.Context) ([]FlatGroup, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, err
	}

	byParent := make(map[string][]Group)
	known := make(map[string]bool, len(groups))
	for _, g := range groups {
		known[g.ID] = true
	}
	for _, g := range groups {
		parent := g.ParentID
		if parent != "" && !known[parent] {
			parent = ""
		}
		byParent[parent] = append(byParent[parent], g)
	}
	for _, siblings := range byParent {
		sort.Slice(siblings, func(i, j int) bool {
			if siblings[i].SortOrder != siblings[j].SortOrder {
				return siblings[i].SortOrder < siblings[j].SortOrder
			}
			return siblings[i].Name < siblings[j].Name
		})
	}

	flat := make([]FlatGroup, 0, len(groups))
	var walk func(parentID string, depth int)
	walk = func(parentID string, depth int) {
		for _, g := range byParent[parentID] {
			flat = append(flat, FlatGroup{Group: g, Depth: depth})
			walk(g.ID, depth+1)
		}
	}
	walk("", 0)

	return flat, nil
}
