package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeBuilder_Build(t *testing.T) {
	data := newTestBuilder().Build(kitchenBundle(1, 1))

	assert.Equal(t, "WO-1", data.WorkOrderID)
	assert.Equal(t, "Kitchen", data.WorkOrderName)
	require.Len(t, data.Products, 1)

	cabinet := findProduct(t, data, "P1")
	assert.Equal(t, "Base Cabinet", cabinet.Name)
	assert.Equal(t, 1, cabinet.Quantity)
	require.Len(t, cabinet.Parts, 2, "only parts without a subassembly hang off the product")
	assert.Equal(t, "PT1", cabinet.Parts[0].ID)
	assert.Equal(t, 600.0, cabinet.Parts[0].Length)
	assert.Equal(t, 300.5, cabinet.Parts[0].Width)
	assert.Equal(t, 18.0, cabinet.Parts[0].Thickness)
	assert.Equal(t, "White Melamine", cabinet.Parts[0].Material)
	assert.Equal(t, "T", cabinet.Parts[0].EdgeBandingCode)

	require.Len(t, cabinet.Subassemblies, 1)
	drawer := cabinet.Subassemblies[0]
	assert.Equal(t, "S1", drawer.ID)
	require.Len(t, drawer.Parts, 1)
	assert.Equal(t, "PT3", drawer.Parts[0].ID)
	require.Len(t, drawer.Subassemblies, 1)
	front := drawer.Subassemblies[0]
	assert.Equal(t, "S2", front.ID)
	assert.Equal(t, "S1", front.ParentSubassemblyID)
	assert.Equal(t, "P1", front.ProductID)
	require.Len(t, front.Parts, 1)
	assert.Equal(t, "PT4", front.Parts[0].ID)

	require.Len(t, cabinet.Hardware, 1)
	assert.Equal(t, 4, cabinet.Hardware[0].Quantity)

	require.Len(t, data.Hardware, 1)
	assert.Equal(t, "H2", data.Hardware[0].ID)

	require.Len(t, data.NestSheets, 2)
	assert.Equal(t, "Sheet N1", data.NestSheets[0].Name)
	assert.Equal(t, "BC-N1", data.NestSheets[0].Barcode)

	// First placement wins
	assert.Equal(t, "N1", data.PartSheetMap["PT1"])
	assert.Equal(t, "N2", data.PartSheetMap["PT3"])

	assert.Empty(t, data.Warnings)
}

func TestTreeBuilder_DetachedProduct(t *testing.T) {
	data := newTestBuilder().Build(kitchenBundle(1, 1))

	require.Len(t, data.DetachedProducts, 1)
	d := data.DetachedProducts[0]
	assert.Equal(t, "P2", d.ID)
	assert.Equal(t, "Filler", d.Name)
	assert.Equal(t, "PT5", d.PhysicalPartID)
	require.NotNil(t, d.Part)
	assert.Equal(t, "PT5", d.Part.ID)

	for _, p := range data.Products {
		assert.NotEqual(t, "P2", p.ID, "detached products are not listed as products")
	}
}

func TestTreeBuilder_ProductWithOnePartAndHardwareIsNotDetached(t *testing.T) {
	data := newTestBuilder().Build(&Bundle{
		Products: []Row{product("P1", "Shelf", 1)},
		Parts:    []Row{part("PT1", "P1", "")},
		Hardware: []Row{hardware("H1", "P1", 2)},
	})

	assert.Len(t, data.Products, 1)
	assert.Empty(t, data.DetachedProducts)
}

func TestTreeBuilder_CircularSubassemblies(t *testing.T) {
	// A -> B -> A
	bundle := &Bundle{
		Products: []Row{product("P1", "Cabinet", 1)},
		Subassemblies: []Row{
			sub("A", "P1", "", 1),
			sub("B", "P1", "A", 1),
			sub("A", "P1", "B", 1),
		},
		Parts: []Row{
			part("PT1", "P1", ""),
			part("PT2", "P1", "A"),
			part("PT3", "P1", "B"),
		},
	}

	data := newTestBuilder().Build(bundle)

	cabinet := findProduct(t, data, "P1")
	require.Len(t, cabinet.Subassemblies, 1)
	a := cabinet.Subassemblies[0]
	assert.Equal(t, "A", a.ID)
	require.Len(t, a.Subassemblies, 1)
	b := a.Subassemblies[0]
	assert.Equal(t, "B", b.ID)
	require.Len(t, b.Subassemblies, 1)

	repeated := b.Subassemblies[0]
	assert.Equal(t, "A", repeated.ID)
	assert.Empty(t, repeated.Subassemblies, "expansion stops at the repeated node")
	assert.Empty(t, repeated.Parts)

	require.NotEmpty(t, data.Warnings)
	assert.True(t, containsWarning(data.Warnings, "Circular subassembly reference at A"), data.Warnings)
}

func TestTreeBuilder_UnreachableCycle(t *testing.T) {
	bundle := &Bundle{
		Products: []Row{product("P1", "Cabinet", 1)},
		Subassemblies: []Row{
			sub("X", "", "Y", 1),
			sub("Y", "", "X", 1),
		},
		Parts: []Row{
			part("PT1", "P1", ""),
			part("PT2", "P1", ""),
			part("PT9", "", "X"),
		},
	}

	data := newTestBuilder().Build(bundle)

	cabinet := findProduct(t, data, "P1")
	assert.Empty(t, cabinet.Subassemblies)
	assert.True(t, containsWarning(data.Warnings, "2 subassembly rows are not reachable"), data.Warnings)
	assert.True(t, containsWarning(data.Warnings, "1 part rows reference no known product"), data.Warnings)
}

func TestTreeBuilder_EmptySubassemblyID(t *testing.T) {
	bundle := &Bundle{
		Products:      []Row{product("P1", "Cabinet", 1)},
		Subassemblies: []Row{sub("", "P1", "", 1)},
		Parts:         []Row{part("PT1", "P1", ""), part("PT2", "P1", "")},
	}

	data := newTestBuilder().Build(bundle)

	cabinet := findProduct(t, data, "P1")
	require.Len(t, cabinet.Subassemblies, 1)
	id := cabinet.Subassemblies[0].ID
	assert.True(t, strings.HasPrefix(id, "EMPTY_SUB_"), id)
	assert.Len(t, id, len("EMPTY_SUB_")+8)
	assert.True(t, containsWarning(data.Warnings, "has no identifier"), data.Warnings)
}

func TestTreeBuilder_NestSheets(t *testing.T) {
	bundle := &Bundle{
		Products: []Row{product("P1", "Cabinet", 1)},
		Parts:    []Row{part("PT1", "P1", ""), part("PT2", "P1", "")},
		NestSheets: []Row{
			sheet("N1"),
			sheet("N1"),
			{"FileName": "nameless"},
			{"LinkID": "N3"},
		},
	}

	data := newTestBuilder().Build(bundle)

	require.Len(t, data.NestSheets, 2)
	assert.Equal(t, "N1", data.NestSheets[0].ID)
	assert.Equal(t, "N3", data.NestSheets[1].Name, "a sheet without a name is named after its ID")
	assert.True(t, containsWarning(data.Warnings, "nameless"), data.Warnings)
}

func TestTreeBuilder_Counts(t *testing.T) {
	data := newTestBuilder().Build(kitchenBundle(1, 1))
	counts := data.Counts()

	assert.Equal(t, 1, counts["products"])
	assert.Equal(t, 2, counts["subassemblies"])
	assert.Equal(t, 1, counts["detachedProducts"])
	assert.Equal(t, 2, counts["nestSheets"])
}

func TestEdgeBandingCode(t *testing.T) {
	assert.Equal(t, "TBLR", EdgeBandingCode("PVC", "PVC", "ABS", "ABS"))
	assert.Equal(t, "TR", EdgeBandingCode("PVC", "none", "-", "ABS"))
	assert.Equal(t, "", EdgeBandingCode("", " No ", "0", ""))

	long, short := EdgeBandingSides("TBL")
	assert.Equal(t, 2, long)
	assert.Equal(t, 1, short)
}

func TestTreeBuilder_SubassemblyHardware(t *testing.T) {
	slides := hardware("H9", "P1", 6)
	slides["LinkIDSubAssembly"] = "S1"
	stray := hardware("H8", "P1", 1)
	stray["LinkIDSubAssembly"] = "S-missing"
	bundle := kitchenBundle(1, 1)
	bundle.Hardware = append(bundle.Hardware, slides, stray)

	data := newTestBuilder().Build(bundle)

	cabinet := findProduct(t, data, "P1")
	require.Len(t, cabinet.Hardware, 1)
	assert.Equal(t, "H1", cabinet.Hardware[0].ID)
	drawer := cabinet.Subassemblies[0]
	require.Len(t, drawer.Hardware, 1)
	assert.Equal(t, "H9", drawer.Hardware[0].ID)
	assert.Equal(t, 6, drawer.Hardware[0].Quantity)

	var standalone []string
	for _, h := range data.Hardware {
		standalone = append(standalone, h.ID)
	}
	assert.Equal(t, []string{"H2", "H8"}, standalone)
	assert.Equal(t, 4, data.Counts()["hardware"])
}

func TestTreeBuilder_CapsQuantity(t *testing.T) {
	row := product("P1", "Cabinet", 1)
	row["Quantity"] = 1e12
	data := newTestBuilder().Build(&Bundle{
		Products: []Row{row},
		Parts:    []Row{part("PT1", "P1", ""), part("PT2", "P1", "")},
	})

	assert.Equal(t, MaxExpandQuantity, findProduct(t, data, "P1").Quantity)
	assert.True(t, containsWarning(data.Warnings, "expanding only"), data.Warnings)
}

func containsWarning(warnings []string, fragment string) bool {
	for _, w := range warnings {
		if strings.Contains(w, fragment) {
			return true
		}
	}
	return false
}
