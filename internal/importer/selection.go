package importer

import (
	"fmt"
	"sort"
	"strings"
)

// ItemType discriminates the entity a selected identifier refers to
type ItemType string

const (
	ItemProduct         ItemType = "product"
	ItemPart            ItemType = "part"
	ItemSubassembly     ItemType = "subassembly"
	ItemHardware        ItemType = "hardware"
	ItemDetachedProduct ItemType = "detached_product"
	ItemNestSheet       ItemType = "nestsheet"
)

func (t ItemType) valid() bool {
	switch t {
	case ItemProduct, ItemPart, ItemSubassembly, ItemHardware, ItemDetachedProduct, ItemNestSheet:
		return true
	}
	return false
}

// SelectedItem is one identifier of the selection set
type SelectedItem struct {
	ID       string   `json:"id"`
	ItemType ItemType `json:"itemType"`
}

// SelectionRequest names the parsed entities to persist and the target work order
type SelectionRequest struct {
	WorkOrderName   string         `json:"workOrderName"`
	WorkOrderID     string         `json:"workOrderId,omitempty"`
	SelectedItems   []SelectedItem `json:"selectedItems"`
	AllowDuplicates bool           `json:"allowDuplicates"`
}

// selection answers "is this node selected" during the tree walk
type selection struct {
	typed   map[ItemType]map[string]bool
	untyped map[string]bool
}

func newSelection(items []SelectedItem) *selection {
	s := &selection{
		typed:   make(map[ItemType]map[string]bool),
		untyped: make(map[string]bool),
	}
	for _, item := range items {
		if item.ItemType == "" {
			s.untyped[item.ID] = true
			continue
		}
		if s.typed[item.ItemType] == nil {
			s.typed[item.ItemType] = make(map[string]bool)
		}
		s.typed[item.ItemType][item.ID] = true
	}
	return s
}

func (s *selection) has(t ItemType, id string) bool {
	return s.typed[t][id] || s.untyped[id]
}

// explicit reports whether id was selected tagged with exactly this item type
func (s *selection) explicit(t ItemType, id string) bool {
	return s.typed[t][id]
}

// SelectAll builds a selection of every entity in the tree
func SelectAll(data *ImportData) []SelectedItem {
	var items []SelectedItem
	var walk func(subs []*ImportSubassembly)
	walk = func(subs []*ImportSubassembly) {
		for _, sub := range subs {
			items = append(items, SelectedItem{ID: sub.ID, ItemType: ItemSubassembly})
			for _, part := range sub.Parts {
				items = append(items, SelectedItem{ID: part.ID, ItemType: ItemPart})
			}
			for _, hw := range sub.Hardware {
				items = append(items, SelectedItem{ID: hw.ID, ItemType: ItemHardware})
			}
			walk(sub.Subassemblies)
		}
	}
	for _, p := range data.Products {
		items = append(items, SelectedItem{ID: p.ID, ItemType: ItemProduct})
		for _, part := range p.Parts {
			items = append(items, SelectedItem{ID: part.ID, ItemType: ItemPart})
		}
		for _, hw := range p.Hardware {
			items = append(items, SelectedItem{ID: hw.ID, ItemType: ItemHardware})
		}
		walk(p.Subassemblies)
	}
	for _, hw := range data.Hardware {
		items = append(items, SelectedItem{ID: hw.ID, ItemType: ItemHardware})
	}
	for _, d := range data.DetachedProducts {
		items = append(items, SelectedItem{ID: d.ID, ItemType: ItemDetachedProduct})
	}
	for _, sheet := range data.NestSheets {
		items = append(items, SelectedItem{ID: sheet.ID, ItemType: ItemNestSheet})
	}
	return items
}

// allItemTypes fixes the order item types are reported in
var allItemTypes = []ItemType{ItemProduct, ItemPart, ItemSubassembly, ItemHardware, ItemDetachedProduct, ItemNestSheet}

// selectableIDs indexes every identifier of the tree by the item types it can
// be selected as. A detached product may also be selected as a product.
func selectableIDs(data *ImportData) map[ItemType]map[string]bool {
	ids := make(map[ItemType]map[string]bool, len(allItemTypes))
	for _, t := range allItemTypes {
		ids[t] = make(map[string]bool)
	}
	for _, item := range SelectAll(data) {
		ids[item.ItemType][item.ID] = true
	}
	for _, d := range data.DetachedProducts {
		ids[ItemProduct][d.ID] = true
		if d.Part != nil {
			ids[ItemPart][d.Part.ID] = true
		}
	}
	return ids
}

// typesOf lists the item types an identifier is known as
func typesOf(ids map[ItemType]map[string]bool, id string) []string {
	var types []string
	for _, t := range allItemTypes {
		if ids[t][id] {
			types = append(types, string(t))
		}
	}
	return types
}

// validateSelection returns the validation errors of a request; none means it may proceed
func validateSelection(data *ImportData, req SelectionRequest) []string {
	var errs []string
	if strings.TrimSpace(req.WorkOrderName) == "" {
		errs = append(errs, "Work order name is required")
	}
	if len(req.SelectedItems) == 0 {
		errs = append(errs, "No items selected for conversion")
		return errs
	}

	known := selectableIDs(data)
	var invalid, badTypes, mismatched []string
	for _, item := range req.SelectedItems {
		switch {
		case item.ItemType == "":
			if len(typesOf(known, item.ID)) == 0 {
				invalid = append(invalid, item.ID)
			}
		case !item.ItemType.valid():
			badTypes = append(badTypes, fmt.Sprintf("%s (%s)", item.ID, item.ItemType))
		case known[item.ItemType][item.ID]:
		default:
			if actual := typesOf(known, item.ID); len(actual) > 0 {
				mismatched = append(mismatched, fmt.Sprintf("%s (%s, found as %s)",
					item.ID, item.ItemType, strings.Join(actual, "/")))
				continue
			}
			invalid = append(invalid, item.ID)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		errs = append(errs, "Invalid selection identifiers: "+strings.Join(invalid, ", "))
	}
	if len(badTypes) > 0 {
		errs = append(errs, "Unknown item types: "+strings.Join(badTypes, ", "))
	}
	if len(mismatched) > 0 {
		errs = append(errs, "Item types do not match the identifiers: "+strings.Join(mismatched, ", "))
	}
	return errs
}
