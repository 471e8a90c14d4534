package queue

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/shopforge/invoicepress/internal/apperr"
	"github.com/shopforge/invoicepress/internal/clock"
)

const claimAttempts = 5

// queueTask is the persisted row backing a Task.
type queueTask struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	JobID       snowflake.ID `gorm:"not null;index"`
	Shop        string       `gorm:"type:text;not null"`
	AvailableAt time.Time    `gorm:"not null;index"`
	ClaimedAt   *time.Time
	Attempts    int       `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (queueTask) TableName() string { return "print_job_queue" }

// GormQueue stores tasks in the relational database. Claiming is a
// compare-and-set on claimed_at so concurrent workers never take the
// same task twice, regardless of dialect.
type GormQueue struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewGormQueue(db *gorm.DB, clk clock.Clock) *GormQueue {
	return &GormQueue{db: db, clock: clk}
}

func (q *GormQueue) Enqueue(ctx context.Context, jobID snowflake.ID, shop string) error {
	task := queueTask{
		ID:          jobID,
		JobID:       jobID,
		Shop:        shop,
		AvailableAt: q.clock.Now(),
	}
	if err := q.db.WithContext(ctx).Create(&task).Error; err != nil {
		return apperr.NewResource("queue.enqueue", err)
	}
	return nil
}

func (q *GormQueue) Dequeue(ctx context.Context) (*Task, error) {
	now := q.clock.Now()
	for i := 0; i < claimAttempts; i++ {
		var task queueTask
		err := q.db.WithContext(ctx).
			Where("claimed_at IS NULL AND available_at <= ?", now).
			Order("available_at, id").
			First(&task).Error
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, apperr.NewResource("queue.dequeue", err)
		}

		res := q.db.WithContext(ctx).
			Model(&queueTask{}).
			Where("id = ? AND claimed_at IS NULL", task.ID).
			Updates(map[string]any{"claimed_at": now, "attempts": task.Attempts + 1})
		if res.Error != nil {
			return nil, apperr.NewResource("queue.dequeue", res.Error)
		}
		if res.RowsAffected == 1 {
			return &Task{ID: task.ID, JobID: task.JobID, Shop: task.Shop}, nil
		}
		// Lost the claim race, pick the next candidate.
	}
	return nil, nil
}

func (q *GormQueue) Ack(ctx context.Context, taskID snowflake.ID) error {
	if err := q.db.WithContext(ctx).Delete(&queueTask{}, "id = ?", taskID).Error; err != nil {
		return apperr.NewResource("queue.ack", err)
	}
	return nil
}

func (q *GormQueue) Nack(ctx context.Context, taskID snowflake.ID, delay time.Duration) error {
	err := q.db.WithContext(ctx).
		Model(&queueTask{}).
		Where("id = ?", taskID).
		Updates(map[string]any{"claimed_at": nil, "available_at": q.clock.Now().Add(delay)}).Error
	if err != nil {
		return apperr.NewResource("queue.nack", err)
	}
	return nil
}

var _ Queue = (*GormQueue)(nil)

// AutoMigrate creates the queue table on dialects that derive schema
// from models instead of SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&queueTask{})
}
