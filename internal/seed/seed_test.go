package seed

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	catalogdomain "github.com/smallbiznis/healx/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/healx/internal/catalog/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sampleCatalog = `
metrics:
  - id: 1
    code: HK_HR_RESTING
    display_name: Resting heart rate
    category: Vitals
    unit: bpm
    ref_min: 40
    ref_max: 100
  - id: 2
    code: HEALX_VIT_D
    display_name: Vitamin D
    category: Blood
    unit: ng/mL
`

func TestLoadCatalog(t *testing.T) {
	defs, err := LoadCatalog(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, int64(1), defs[0].ID)
	assert.Equal(t, "HK_HR_RESTING", defs[0].Code)
	assert.Equal(t, catalogdomain.CategoryVitals, defs[0].Category)
	require.NotNil(t, defs[0].RefMax)
	assert.Equal(t, 100.0, *defs[0].RefMax)
	assert.Nil(t, defs[1].RefMin)
}

func TestLoadCatalogRejectsBadEntries(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
	}{
		{"missing id", "metrics:\n  - code: A\n    category: Vitals\n", catalogdomain.ErrInvalidID},
		{"blank code", "metrics:\n  - id: 1\n    code: ' '\n    category: Vitals\n", catalogdomain.ErrInvalidCode},
		{"bad category", "metrics:\n  - id: 1\n    code: A\n    category: Mood\n", catalogdomain.ErrInvalidCategory},
		{"duplicate code", "metrics:\n  - id: 1\n    code: A\n    category: DNA\n  - id: 2\n    code: A\n    category: DNA\n", ErrDuplicateDefinition},
		{"duplicate id", "metrics:\n  - id: 1\n    code: A\n    category: DNA\n  - id: 1\n    code: B\n    category: DNA\n", ErrDuplicateDefinition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadCatalog(strings.NewReader(tc.body))
			assert.ErrorIs(t, err, tc.err)
		})
	}

	_, err := LoadCatalog(strings.NewReader("metrics:\n  - id: 1\n    code: A\n    category: DNA\n    colour: red\n"))
	assert.Error(t, err)
}

func TestSeedCatalogUpsertsByCode(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&catalogdomain.MetricDefinition{}))

	repo := catalogrepo.Provide()
	ctx := context.Background()

	defs, err := LoadCatalog(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	require.NoError(t, SeedCatalog(ctx, db, repo, defs, zap.NewNop()))

	defs[1].DisplayName = "25-OH Vitamin D"
	require.NoError(t, SeedCatalog(ctx, db, repo, defs, zap.NewNop()))

	var count int64
	require.NoError(t, db.Model(&catalogdomain.MetricDefinition{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var vitD catalogdomain.MetricDefinition
	require.NoError(t, db.Where("code = ?", "HEALX_VIT_D").First(&vitD).Error)
	assert.Equal(t, int64(2), vitD.ID)
	assert.Equal(t, "25-OH Vitamin D", vitD.DisplayName)
}
