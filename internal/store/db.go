package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Product{}, &ConcernSubtype{}, &MatrixEntry{}, &SkinTypeDefault{}, &Consultation{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Snapshot is an immutable read of the three reference tables the resolution
// engine consumes. Each API call loads its own snapshot; staleness between
// loads is the caller's concern.
type Snapshot struct {
	Products []Product
	Entries  []MatrixEntry
	Defaults []SkinTypeDefault
}

// LoadSnapshot reads products, matrix entries, and skin-type defaults in one
// pass for a resolution request.
func (d *Database) LoadSnapshot() (*Snapshot, error) {
	if d == nil {
		return nil, errors.New("database is nil")
	}
	snap := &Snapshot{}
	if err := d.gorm.Order("id ASC").Find(&snap.Products).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	if err := d.gorm.Order("created_at ASC, id ASC").Find(&snap.Entries).Error; err != nil {
		return nil, fmt.Errorf("load matrix entries: %w", err)
	}
	if err := d.gorm.Order("skin_type ASC, slot ASC").Find(&snap.Defaults).Error; err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	return snap, nil
}

// SaveProduct creates or updates a catalogue product.
func (d *Database) SaveProduct(p *Product) error {
	if p == nil {
		return errors.New("product is nil")
	}
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("product id required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name", "brand", "category", "tier", "subcategory",
			"pregnancy_unsafe", "isotretinoin_unsafe", "barrier_unsafe",
			"notes", "keywords_json", "updated_at",
		}),
	}).Create(p).Error
}

// GetProduct fetches one product by id.
func (d *Database) GetProduct(id string) (*Product, error) {
	var p Product
	if err := d.gorm.First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns products, optionally filtered by a name/brand substring.
func (d *Database) ListProducts(query string) ([]Product, error) {
	q := d.gorm.Model(&Product{}).Order("display_name ASC")
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		like := fmt.Sprintf("%%%s%%", strings.ToLower(trimmed))
		q = q.Where("LOWER(display_name) LIKE ? OR LOWER(brand) LIKE ?", like, like)
	}
	var rows []Product
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteProduct removes a product from the catalogue.
func (d *Database) DeleteProduct(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Delete(&Product{}, "id = ?", id).Error
}

// ProductReferenced reports whether any matrix row or skin-type default
// still points at the product. Referenced products must not be deleted.
func (d *Database) ProductReferenced(id string) (bool, error) {
	var count int64
	err := d.gorm.Model(&MatrixEntry{}).
		Where("cleanser_id = ? OR core_serum_id = ? OR secondary_serum_id = ? OR moisturizer_id = ? OR sunscreen_id = ?",
			id, id, id, id, id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := d.gorm.Model(&SkinTypeDefault{}).Where("product_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpsertSubtype inserts or updates a concern subtype row.
func (d *Database) UpsertSubtype(s *ConcernSubtype) error {
	if s == nil {
		return errors.New("subtype is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"concern", "code", "label"}),
	}).Create(s).Error
}

// ListSubtypes returns subtype reference rows, optionally scoped to a concern.
func (d *Database) ListSubtypes(concern string) ([]ConcernSubtype, error) {
	q := d.gorm.Model(&ConcernSubtype{}).Order("concern ASC, code ASC")
	if trimmed := strings.TrimSpace(concern); trimmed != "" {
		q = q.Where("concern = ?", trimmed)
	}
	var rows []ConcernSubtype
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertMatrixEntry inserts or updates one matrix rule row.
func (d *Database) UpsertMatrixEntry(m *MatrixEntry) error {
	if m == nil {
		return errors.New("matrix entry is nil")
	}
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("matrix entry id required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"concern", "subtype_id", "skin_type", "band",
			"cleanser_id", "core_serum_id", "secondary_serum_id", "moisturizer_id", "sunscreen_id",
			"remarks", "updated_by", "updated_at",
		}),
	}).Create(m).Error
}

// MatrixQuery encapsulates optional filters for listing matrix rows.
type MatrixQuery struct {
	Concern  string
	SkinType string
	Band     string
}

// ListMatrixEntries returns matrix rows applying optional filters.
func (d *Database) ListMatrixEntries(opts MatrixQuery) ([]MatrixEntry, error) {
	q := d.gorm.Model(&MatrixEntry{}).Order("concern ASC, skin_type ASC, band ASC")
	if v := strings.TrimSpace(opts.Concern); v != "" {
		q = q.Where("concern = ?", v)
	}
	if v := strings.TrimSpace(opts.SkinType); v != "" {
		q = q.Where("skin_type = ?", v)
	}
	if v := strings.TrimSpace(opts.Band); v != "" {
		q = q.Where("band = ?", v)
	}
	var rows []MatrixEntry
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteMatrixEntry removes one rule row.
func (d *Database) DeleteMatrixEntry(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Delete(&MatrixEntry{}, "id = ?", id).Error
}

// UpsertDefault writes a skin-type default keyed on (skin_type, slot).
func (d *Database) UpsertDefault(def *SkinTypeDefault) error {
	if def == nil {
		return errors.New("default is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "skin_type"}, {Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"product_id", "updated_at"}),
	}).Create(def).Error
}

// ListDefaults returns skin-type defaults, optionally scoped to one skin type.
func (d *Database) ListDefaults(skinType string) ([]SkinTypeDefault, error) {
	q := d.gorm.Model(&SkinTypeDefault{}).Order("skin_type ASC, slot ASC")
	if trimmed := strings.TrimSpace(skinType); trimmed != "" {
		q = q.Where("skin_type = ?", trimmed)
	}
	var rows []SkinTypeDefault
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveConsultation persists one served routine resolution.
func (d *Database) SaveConsultation(c *Consultation) error {
	if c == nil {
		return errors.New("consultation is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Save(c).Error
}

// GetConsultation fetches one consultation by id.
func (d *Database) GetConsultation(id uint) (*Consultation, error) {
	var c Consultation
	if err := d.gorm.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConsultations returns paginated consultation rows, newest first.
func (d *Database) ListConsultations(offset, limit int) ([]Consultation, int64, error) {
	var total int64
	if err := d.gorm.Model(&Consultation{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := d.gorm.Model(&Consultation{}).Order("id DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	var rows []Consultation
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// MarkConsultationRecomputed updates a consultation's slot outcomes after a
// recompute pass.
func (d *Database) MarkConsultationRecomputed(c *Consultation) error {
	if c == nil {
		return errors.New("consultation is nil")
	}
	now := time.Now().UTC()
	c.RecomputedAt = &now
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Model(c).Select("slots_json", "remarks", "warnings_json", "recomputed_at").Updates(c).Error
}

// CountProducts returns the catalogue size.
func (d *Database) CountProducts() (int64, error) {
	var count int64
	if err := d.gorm.Model(&Product{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountMatrixEntries returns the number of rule rows.
func (d *Database) CountMatrixEntries() (int64, error) {
	var count int64
	if err := d.gorm.Model(&MatrixEntry{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountConsultations returns the number of stored consultations.
func (d *Database) CountConsultations() (int64, error) {
	var count int64
	if err := d.gorm.Model(&Consultation{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_matrix_lookup ON matrix_entries(concern, subtype_id, skin_type, band)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_default_skin_slot ON skin_type_defaults(skin_type, slot)",
		"CREATE INDEX IF NOT EXISTS idx_consultations_created ON consultations(created_at)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
