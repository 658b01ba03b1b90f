package importer

import "fmt"

// MaxExpandQuantity bounds the units one logical entity expands into
const MaxExpandQuantity = 1000

// Instance is one physical unit of a logical entity
type Instance struct {
	Index  int    // 1-based
	ID     string // identifier of this unit
	Name   string
	Suffix string // appended to every descendant identifier under this unit
}

// Expand turns an entity with the declared quantity into its physical units.
// A quantity of 1 or less yields the entity itself; otherwise each unit gets
// "_<i>" appended to baseID and to the suffix inherited from its ancestors.
// Quantities above MaxExpandQuantity are capped.
func Expand(baseID, name string, quantity int, inheritedSuffix string) []Instance {
	if quantity > MaxExpandQuantity {
		quantity = MaxExpandQuantity
	}
	if quantity <= 1 {
		return []Instance{{Index: 1, ID: baseID, Name: name, Suffix: inheritedSuffix}}
	}
	instances := make([]Instance, 0, quantity)
	for i := 1; i <= quantity; i++ {
		own := fmt.Sprintf("_%d", i)
		instances = append(instances, Instance{
			Index:  i,
			ID:     baseID + own,
			Name:   fmt.Sprintf("%s (Instance %d)", name, i),
			Suffix: inheritedSuffix + own,
		})
	}
	return instances
}
