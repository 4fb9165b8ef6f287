package vertical

import (
	"github.com/varejo/backend/internal/domain/entitlement"
	"github.com/varejo/backend/internal/domain/vertical"
)

// Built-in vertical names
const (
	VerticalPadaria      = "PADARIA"
	VerticalFarmacia     = "FARMACIA"
	VerticalSupermercado = "SUPERMERCADO"
)

func floatPtr(f float64) *float64 { return &f }

// RegisterBuiltins registers the built-in vertical definitions and their
// schema migrations. The property schemas here are the generic containment
// contract; line-of-business validation plugs in behind them.
func RegisterBuiltins(registry *vertical.Registry, migrator *vertical.Migrator) error {
	defs := []*vertical.Definition{
		{
			Name:            VerticalPadaria,
			DisplayName:     "Padaria",
			RequiredModules: []string{entitlement.ModuleProducts, entitlement.ModuleStock},
			OptionalModules: []string{entitlement.ModulePromotions},
			DefaultConfig: vertical.PropertyBag{
				"production_tracking": vertical.Bool(true),
			},
			Schemas: map[string]*vertical.Schema{
				"1.0": {
					Version: "1.0",
					Fields: map[string]vertical.FieldSpec{
						"batch_size":    {Type: vertical.FieldNumber, Min: floatPtr(1)},
						"shelf_life_h":  {Type: vertical.FieldNumber, Required: true, Min: floatPtr(0)},
						"contains_nuts": {Type: vertical.FieldBool},
					},
				},
				"1.1": {
					Version: "1.1",
					Fields: map[string]vertical.FieldSpec{
						"batch_size":        {Type: vertical.FieldNumber, Min: floatPtr(1)},
						"shelf_life_hours":  {Type: vertical.FieldNumber, Required: true, Min: floatPtr(0)},
						"allergens":         {Type: vertical.FieldMap},
					},
				},
			},
			CurrentVersion: "1.1",
		},
		{
			Name:            VerticalFarmacia,
			DisplayName:     "Farmácia",
			RequiredModules: []string{entitlement.ModuleProducts, entitlement.ModuleSales, entitlement.ModuleStock},
			Schemas: map[string]*vertical.Schema{
				"1.0": {
					Version: "1.0",
					Fields: map[string]vertical.FieldSpec{
						"registration_code":     {Type: vertical.FieldString, Required: true, Pattern: `^[0-9]{1}\.[0-9]{4}\.[0-9]{4}\.[0-9]{3}-[0-9]$`},
						"controlled_substance":  {Type: vertical.FieldBool, Required: true},
						"prescription_category": {Type: vertical.FieldString, Enum: []string{"OTC", "WHITE", "RED", "BLACK"}},
					},
				},
			},
			CurrentVersion: "1.0",
		},
		{
			Name:            VerticalSupermercado,
			DisplayName:     "Supermercado",
			RequiredModules: []string{entitlement.ModuleProducts, entitlement.ModuleSales},
			OptionalModules: []string{entitlement.ModuleStock, entitlement.ModulePromotions},
			Schemas: map[string]*vertical.Schema{
				"1.0": {
					Version: "1.0",
					Fields: map[string]vertical.FieldSpec{
						"section":     {Type: vertical.FieldString},
						"perishable":  {Type: vertical.FieldBool},
						"unit_weight": {Type: vertical.FieldNumber, Min: floatPtr(0)},
					},
					AllowUnknown: true,
				},
			},
			CurrentVersion: "1.0",
		},
	}

	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return err
		}
	}

	return migrator.Register(VerticalPadaria, "1.0", "1.1", migratePadaria10to11)
}

// migratePadaria10to11 renames shelf_life_h to shelf_life_hours and folds the
// contains_nuts flag into the allergens map
func migratePadaria10to11(bag vertical.PropertyBag) (vertical.PropertyBag, error) {
	out := bag.Clone()
	if out == nil {
		out = vertical.PropertyBag{}
	}

	if v, ok := out["shelf_life_h"]; ok {
		out["shelf_life_hours"] = v
		delete(out, "shelf_life_h")
	}
	if v, ok := out["contains_nuts"]; ok {
		out["allergens"] = vertical.Map(map[string]vertical.Value{"nuts": v})
		delete(out, "contains_nuts")
	}
	return out, nil
}
