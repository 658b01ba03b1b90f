package importer

import (
	"testing"

	"go.uber.org/zap"
)

func newTestFields() *FieldResolver {
	return NewFieldResolver(zap.NewNop(), nil)
}

func newTestBuilder() *TreeBuilder {
	return NewTreeBuilder(newTestFields(), zap.NewNop())
}

func product(id, name string, qty int) Row {
	return Row{"LinkID": id, "ItemNumber": name, "Quantity": float64(qty), "LinkIDWorkOrder": "WO-1", "WorkOrderName": "Kitchen"}
}

func sub(id, productID, parentID string, qty int) Row {
	row := Row{"LinkID": id, "Name": "Sub " + id, "Quantity": float64(qty)}
	if productID != "" {
		row["LinkIDProduct"] = productID
	}
	if parentID != "" {
		row["LinkIDParentSubassembly"] = parentID
	}
	return row
}

func part(id, productID, subID string) Row {
	row := Row{
		"LinkID":       id,
		"Name":         "Part " + id,
		"Quantity":     float64(1),
		"Length":       "600",
		"Width":        300.5,
		"Thickness":    18,
		"MaterialName": "White Melamine",
		"EdgeNameTop":  "PVC 2mm",
		"EdgeNameLeft": "None",
	}
	if productID != "" {
		row["LinkIDProduct"] = productID
	}
	if subID != "" {
		row["LinkIDSubAssembly"] = subID
	}
	return row
}

func hardware(id, productID string, qty int) Row {
	row := Row{"LinkID": id, "Name": "Hinge " + id, "Quantity": float64(qty)}
	if productID != "" {
		row["LinkIDProduct"] = productID
	}
	return row
}

func sheet(id string) Row {
	return Row{"LinkID": id, "FileName": "Sheet " + id, "MaterialName": "White Melamine", "Length": 2440.0, "Width": 1220.0, "Thickness": 18.0, "Barcode": "BC-" + id}
}

func placement(partID, sheetID string) Row {
	return Row{"LinkIDPart": partID, "LinkIDSheet": sheetID}
}

// kitchenBundle is one cabinet with a drawer box holding a nested front,
// one standalone panel product and two placed sheets
func kitchenBundle(cabinetQty, drawerQty int) *Bundle {
	return &Bundle{
		Products: []Row{
			product("P1", "Base Cabinet", cabinetQty),
			product("P2", "Filler", 1),
		},
		Subassemblies: []Row{
			sub("S1", "P1", "", drawerQty),
			sub("S2", "", "S1", 1),
		},
		Parts: []Row{
			part("PT1", "P1", ""),
			part("PT2", "P1", ""),
			part("PT3", "P1", "S1"),
			part("PT4", "P1", "S2"),
			part("PT5", "P2", ""),
		},
		Hardware: []Row{
			hardware("H1", "P1", 4),
			hardware("H2", "", 10),
		},
		NestSheets: []Row{sheet("N1"), sheet("N2")},
		OptimizationResults: []Row{
			placement("PT1", "N1"),
			placement("PT2", "N2"),
			placement("PT3", "N2"),
			placement("PT1", "N2"),
		},
	}
}

func findProduct(t *testing.T, data *ImportData, id string) *ImportProduct {
	t.Helper()
	for _, p := range data.Products {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("product %s not found", id)
	return nil
}
