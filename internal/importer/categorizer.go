package importer

import "github.com/xelth-com/eckcutgo/internal/models"

// Categorizer assigns a category label to a persisted part.
// Classification rules live outside the import pipeline.
type Categorizer interface {
	Categorize(part models.Part) string
}

// CategorizerFunc adapts a function to Categorizer
type CategorizerFunc func(part models.Part) string

// Categorize implements Categorizer
func (f CategorizerFunc) Categorize(part models.Part) string { return f(part) }

// StandardCategorizer labels every part as standard
var StandardCategorizer Categorizer = CategorizerFunc(func(models.Part) string {
	return models.PartCategoryStandard
})
