// Package domain contains the metric catalog models.
package domain

// Category groups metric definitions for display.
type Category string

const (
	CategoryBlood      Category = "Blood"
	CategoryDNA        Category = "DNA"
	CategoryVitals     Category = "Vitals"
	CategoryFunctional Category = "Functional"
	CategoryFitness    Category = "Fitness"
	CategoryMicrobiome Category = "Microbiome"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryBlood, CategoryDNA, CategoryVitals, CategoryFunctional, CategoryFitness, CategoryMicrobiome:
		return true
	default:
		return false
	}
}

// MetricDefinition is a catalog entry. Ids are assigned by the seeding process and never change.
type MetricDefinition struct {
	ID          int64    `json:"id" yaml:"id" gorm:"primaryKey;autoIncrement:false"`
	Code        string   `json:"code" yaml:"code" gorm:"type:text;not null;uniqueIndex:ux_metric_definitions_code"`
	DisplayName string   `json:"display_name" yaml:"display_name" gorm:"type:text;not null"`
	Category    Category `json:"category" yaml:"category" gorm:"type:text;not null"`
	Unit        *string  `json:"unit,omitempty" yaml:"unit" gorm:"type:text"`
	Description *string  `json:"description,omitempty" yaml:"description" gorm:"type:text"`
	RefMin      *float64 `json:"ref_min,omitempty" yaml:"ref_min" gorm:"type:numeric(18,6)"`
	RefMax      *float64 `json:"ref_max,omitempty" yaml:"ref_max" gorm:"type:numeric(18,6)"`
}

// TableName sets the database table name.
func (MetricDefinition) TableName() string { return "metric_definitions" }

// CodeEntry is the projection loaded into the resolver snapshot.
type CodeEntry struct {
	ID   int64  `gorm:"column:id"`
	Code string `gorm:"column:code"`
}
