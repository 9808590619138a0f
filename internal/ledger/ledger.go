// Package ledger keeps a SQLite record of every step a launcher ran, so a
// later launch of the same command can skip the values that already
// completed.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Vincent-lau/hpcsim/internal/launcher"
)

const (
	StepCompleted string = "COMPLETED"
	StepFailed    string = "FAILED"
)

type RunRecord struct {
	Id       uint      `gorm:"primaryKey"`
	LaunchId uuid.UUID `gorm:"type:uuid;index"`
	Seq      int       `gorm:"index"`
	Command  string    `gorm:"index;not null"`
	Node     string
	ExitCode int
	Status   string `gorm:"size:20;not null"`
	Error    sql.NullString

	StartTime time.Time
	Duration  time.Duration
}

type Ledger struct {
	db *gorm.DB
}

func Open(path string) (*Ledger, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (l *Ledger) Record(launchId uuid.UUID, command string, r launcher.Result) error {
	rec := RunRecord{
		LaunchId:  launchId,
		Seq:       r.Step.Seq,
		Command:   command,
		Node:      r.Node,
		ExitCode:  r.ExitCode,
		Status:    StepCompleted,
		StartTime: r.Start,
		Duration:  r.Duration,
	}
	if r.Failed() {
		rec.Status = StepFailed
	}
	if r.Err != nil {
		rec.Error = sql.NullString{String: r.Err.Error(), Valid: true}
	}

	if err := l.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("record step %d: %w", r.Step.Seq, err)
	}
	return nil
}

// Completed returns the sequence values of command that completed in any
// earlier launch.
func (l *Ledger) Completed(command string) (map[int]bool, error) {
	var seqs []int
	err := l.db.Model(&RunRecord{}).
		Where("command = ? AND status = ?", command, StepCompleted).
		Distinct().
		Pluck("seq", &seqs).Error
	if err != nil {
		return nil, fmt.Errorf("list completed steps: %w", err)
	}

	done := make(map[int]bool, len(seqs))
	for _, s := range seqs {
		done[s] = true
	}
	return done, nil
}

// Launch returns the records of one launch ordered by sequence value.
func (l *Ledger) Launch(launchId uuid.UUID) ([]RunRecord, error) {
	var recs []RunRecord
	if err := l.db.Where("launch_id = ?", launchId).Order("seq").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list launch %s: %w", launchId, err)
	}
	return recs, nil
}

type observer struct {
	ledger   *Ledger
	launchId uuid.UUID
	command  string
}

func (o observer) Observe(r launcher.Result) error {
	return o.ledger.Record(o.launchId, o.command, r)
}

// Observer records every result of the launch launchId of command.
func (l *Ledger) Observer(launchId uuid.UUID, command string) launcher.Observer {
	return observer{
		ledger:   l,
		launchId: launchId,
		command:  command,
	}
}
