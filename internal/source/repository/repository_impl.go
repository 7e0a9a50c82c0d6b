package repository

import (
	"context"

	sourcedomain "github.com/smallbiznis/healx/internal/source/domain"
	"github.com/smallbiznis/healx/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() sourcedomain.Repository {
	return &repo{}
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*sourcedomain.DataSource, error) {
	var src sourcedomain.DataSource
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, api_key_hash, is_trusted, created_at
		 FROM data_sources WHERE name = ?`,
		name,
	).Scan(&src).Error
	if err != nil {
		return nil, err
	}
	if src.ID == 0 {
		return nil, nil
	}
	return &src, nil
}

func (r *repo) InsertIgnore(ctx context.Context, tx *gorm.DB, src *sourcedomain.DataSource) (bool, error) {
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(src)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
