package docstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/domain"
)

type questionRecord struct {
	ID               string `gorm:"primaryKey"`
	Text             string `gorm:"not null"`
	AnswerKind       string `gorm:"type:varchar(20);not null"`
	RoundKind        string `gorm:"type:varchar(30);not null;index"`
	Category         string `gorm:"type:varchar(30)"`
	TimeLimitSeconds int    `gorm:"not null"`
}

func (questionRecord) TableName() string { return "questions" }

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *questionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) CreateMany(ctx context.Context, questions []*domain.Question) error {
	recs := make([]questionRecord, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		recs[i] = questionRecord{
			ID:               q.ID,
			Text:             q.Text,
			AnswerKind:       string(q.AnswerKind),
			RoundKind:        q.RoundKind,
			Category:         q.Category,
			TimeLimitSeconds: q.TimeLimitSeconds,
		}
	}
	if err := r.db.WithContext(ctx).Create(&recs).Error; err != nil {
		return fmt.Errorf("create questions: %w", err)
	}
	return nil
}

func (r *questionRepository) GetByRoundKind(ctx context.Context, roundKind string) ([]*domain.Question, error) {
	var recs []questionRecord
	err := r.db.WithContext(ctx).
		Where("round_kind = ?", roundKind).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}

	questions := make([]*domain.Question, len(recs))
	for i, rec := range recs {
		questions[i] = &domain.Question{
			ID:               rec.ID,
			Text:             rec.Text,
			AnswerKind:       domain.AnswerKind(rec.AnswerKind),
			RoundKind:        rec.RoundKind,
			Category:         rec.Category,
			TimeLimitSeconds: rec.TimeLimitSeconds,
		}
	}
	return questions, nil
}

func (r *questionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&questionRecord{}).Count(&count).Error
	return count, err
}
