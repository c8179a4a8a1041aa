package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"openclaw/internal/config"
	"openclaw/internal/position"
)

// snapshotModel is the persisted row for one tracked position.
type snapshotModel struct {
	Ticker          string         `gorm:"column:ticker;primaryKey"`
	Side            string         `gorm:"column:side"`
	EntryPrice      float64        `gorm:"column:entry_price"`
	Qty             float64        `gorm:"column:qty"`
	EntryDate       time.Time      `gorm:"column:entry_date"`
	Strategy        string         `gorm:"column:strategy"`
	ATREntry        float64        `gorm:"column:atr_entry"`
	InitialStop     float64        `gorm:"column:initial_stop"`
	CurrentStop     float64        `gorm:"column:current_stop"`
	BreakevenActive bool           `gorm:"column:breakeven_active"`
	Extreme         float64        `gorm:"column:extreme"`
	TP1             float64        `gorm:"column:tp1"`
	TP1Hit          bool           `gorm:"column:tp1_hit"`
	RiskJSON        datatypes.JSON `gorm:"column:risk_json;type:TEXT"`
	UpdatedAt       time.Time      `gorm:"column:updated_at"`
}

func (snapshotModel) TableName() string { return "position_snapshots" }

// Store persists tracked-position snapshots with Gorm + SQLite.
type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: snapshot db path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&snapshotModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: keep the write path single-file friendly.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save upserts one snapshot keyed by ticker, carrying the risk parameters
// the position was opened with so a restore uses the same rules.
func (s *Store) Save(ctx context.Context, snap position.Snapshot, params config.RiskParams) error {
	riskJSON, err := json.Marshal(params)
	if err != nil {
		return err
	}
	model := snapshotModel{
		Ticker:          snap.Ticker,
		Side:            snap.Side,
		EntryPrice:      snap.EntryPrice,
		Qty:             snap.Qty,
		EntryDate:       snap.EntryDate,
		Strategy:        snap.Strategy,
		ATREntry:        snap.ATREntry,
		InitialStop:     snap.InitialStop,
		CurrentStop:     snap.CurrentStop,
		BreakevenActive: snap.BreakevenActive,
		Extreme:         snap.Extreme,
		TP1:             snap.TP1,
		TP1Hit:          snap.TP1Hit,
		RiskJSON:        datatypes.JSON(riskJSON),
		UpdatedAt:       time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ticker"}},
			UpdateAll: true,
		}).
		Create(&model).Error
}

// Load returns the snapshot and its stored risk parameters, or ok=false
// when the ticker was never tracked.
func (s *Store) Load(ctx context.Context, ticker string) (position.Snapshot, config.RiskParams, bool, error) {
	var model snapshotModel
	err := s.db.WithContext(ctx).Where("ticker = ?", ticker).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return position.Snapshot{}, config.RiskParams{}, false, nil
	}
	if err != nil {
		return position.Snapshot{}, config.RiskParams{}, false, err
	}
	snap, params, err := modelToSnapshot(model)
	return snap, params, err == nil, err
}

// List returns every stored snapshot with its risk parameters.
func (s *Store) List(ctx context.Context) ([]position.Snapshot, []config.RiskParams, error) {
	var models []snapshotModel
	if err := s.db.WithContext(ctx).Order("ticker ASC").Find(&models).Error; err != nil {
		return nil, nil, err
	}
	snaps := make([]position.Snapshot, 0, len(models))
	paramList := make([]config.RiskParams, 0, len(models))
	for _, m := range models {
		snap, params, err := modelToSnapshot(m)
		if err != nil {
			return nil, nil, err
		}
		snaps = append(snaps, snap)
		paramList = append(paramList, params)
	}
	return snaps, paramList, nil
}

func (s *Store) Delete(ctx context.Context, ticker string) error {
	return s.db.WithContext(ctx).Where("ticker = ?", ticker).Delete(&snapshotModel{}).Error
}

func modelToSnapshot(m snapshotModel) (position.Snapshot, config.RiskParams, error) {
	params := config.DefaultRiskParams()
	if len(m.RiskJSON) > 0 {
		if err := json.Unmarshal(m.RiskJSON, &params); err != nil {
			return position.Snapshot{}, config.RiskParams{}, fmt.Errorf("snapshot %s: bad risk json: %w", m.Ticker, err)
		}
	}
	return position.Snapshot{
		Ticker:          m.Ticker,
		Side:            m.Side,
		EntryPrice:      m.EntryPrice,
		Qty:             m.Qty,
		EntryDate:       m.EntryDate,
		Strategy:        m.Strategy,
		ATREntry:        m.ATREntry,
		InitialStop:     m.InitialStop,
		CurrentStop:     m.CurrentStop,
		BreakevenActive: m.BreakevenActive,
		Extreme:         m.Extreme,
		TP1:             m.TP1,
		TP1Hit:          m.TP1Hit,
	}, params, nil
}
