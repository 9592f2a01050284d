package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("sqlstore: database handle is required")

type Config struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Store keeps document records in a single sqlite table keyed by (workspace, document_id).
type Store struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

func New(cfg Config) (*Store, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: cfg.Database, clock: clock, logger: logger}, nil
}

var _ store.Store = (*Store)(nil)

func (s *Store) GetItem(ctx context.Context, key store.Key) (store.Record, bool, error) {
	var row DocumentRow
	err := s.db.WithContext(ctx).
		Where("workspace = ? AND document_id = ?", key.Workspace, key.ID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, fmt.Errorf("sqlstore: get %s: %w", key, err)
	}
	return row.record(), true, nil
}

func (s *Store) QueryItems(ctx context.Context, workspace string) ([]store.Record, error) {
	var rows []DocumentRow
	err := s.db.WithContext(ctx).
		Where("workspace = ?", workspace).
		Order("document_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query %s: %w", workspace, err)
	}
	records := make([]store.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (s *Store) Put(ctx context.Context, key store.Key, record store.Record, expectedVersion int64) error {
	row := newDocumentRow(key, record, s.clock().UTC().Unix())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing DocumentRow
		err := tx.Select("version").
			Where("workspace = ? AND document_id = ?", key.Workspace, key.ID).
			Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&row).Error
		}
		if err != nil {
			return err
		}
		if existing.Version != expectedVersion {
			return fmt.Errorf("%w: stored %d, expected %d", store.ErrVersionConflict, existing.Version, expectedVersion)
		}
		result := tx.Model(&row).
			Where("version = ?", expectedVersion).
			Select("title", "version", "tags", "content_type", "content_id", "links", "backlinks", "highlights", "updated_at_s").
			Updates(&row)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return store.ErrVersionConflict
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sqlstore: put %s: %w", key, err)
	}
	return nil
}

// Update merges the field-level difference between the two records into the stored row. Map
// columns are read and merged entry by entry inside the transaction, so entries written by other
// units of work since oldRecord was read survive.
func (s *Store) Update(ctx context.Context, key store.Key, newRecord, oldRecord store.Record) error {
	patch := store.Diff(oldRecord, newRecord)
	if patch.Empty() {
		return nil
	}
	columns := make([]string, 0, len(patch.Attributes())+1)
	for _, attribute := range patch.Attributes() {
		column, ok := columnsByAttribute[attribute]
		if !ok {
			return fmt.Errorf("sqlstore: update %s: unknown attribute %q", key, attribute)
		}
		columns = append(columns, column)
	}
	columns = append(columns, "updated_at_s")

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored DocumentRow
		err := tx.Where("workspace = ? AND document_id = ?", key.Workspace, key.ID).Take(&stored).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return store.ErrItemNotFound
		}
		if err != nil {
			return err
		}
		merged, err := store.Apply(stored.record(), patch)
		if err != nil {
			return err
		}
		row := newDocumentRow(key, merged, s.clock().UTC().Unix())
		return tx.Model(&row).Select(columns).Updates(&row).Error
	})
	if err != nil {
		return fmt.Errorf("sqlstore: update %s: %w", key, err)
	}
	s.logger.Debug("document record patched", zap.String("key", key.String()), zap.Strings("columns", columns))
	return nil
}

func (s *Store) Delete(ctx context.Context, key store.Key) error {
	err := s.db.WithContext(ctx).
		Where("workspace = ? AND document_id = ?", key.Workspace, key.ID).
		Delete(&DocumentRow{}).Error
	if err != nil {
		return fmt.Errorf("sqlstore: delete %s: %w", key, err)
	}
	return nil
}
