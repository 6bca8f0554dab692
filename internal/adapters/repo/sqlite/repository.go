package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/ports"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const databaseDirMode = 0o700

// Repository keeps sessions and the annotation archive in one SQLite file.
type Repository struct {
	db *gorm.DB
}

var (
	_ ports.SessionRepository = (*Repository)(nil)
	_ ports.AnnotationArchive = (*Repository)(nil)
)

func Open(path string) (*Repository, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), databaseDirMode); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sqlite handle: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY between them.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&sessionRow{}, &annotationRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func (r *Repository) Load(ctx context.Context) ([]domain.Session, error) {
	var rows []sessionRow
	if err := r.db.WithContext(ctx).Order("position asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	sessions := make([]domain.Session, 0, len(rows))
	for _, row := range rows {
		session, err := fromSessionRow(row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

func (r *Repository) Save(ctx context.Context, sessions []domain.Session) error {
	rows := make([]sessionRow, 0, len(sessions))
	for i, session := range sessions {
		row, err := toSessionRow(i, session)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&sessionRow{}).Error; err != nil {
			return fmt.Errorf("clear sessions: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert sessions: %w", err)
		}
		return nil
	})
}

func (r *Repository) Append(ctx context.Context, annotation domain.Annotation) error {
	row, err := toAnnotationRow(annotation)
	if err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert annotation: %w", err)
	}

	return nil
}

func (r *Repository) List(ctx context.Context, query ports.ArchiveQuery) ([]domain.Annotation, error) {
	tx := r.db.WithContext(ctx).Model(&annotationRow{})
	if query.SessionID != "" {
		tx = tx.Where("session_id = ?", string(query.SessionID))
	}

	var rows []annotationRow
	if query.Limit > 0 {
		// Newest N, then flipped back to submission order below.
		if err := tx.Order("seq desc").Limit(query.Limit).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("query annotations: %w", err)
		}
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	} else if err := tx.Order("seq asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}

	annotations := make([]domain.Annotation, 0, len(rows))
	for _, row := range rows {
		annotation, err := fromAnnotationRow(row)
		if err != nil {
			return nil, err
		}
		annotations = append(annotations, annotation)
	}

	return annotations, nil
}
