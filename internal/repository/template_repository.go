package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/pkg/util"
)

// TemplateRepository looks up message templates by
// (noticeType, channel, language). Absence is a hard error, never a fallback
// to a default language.
type TemplateRepository interface {
	Find(ctx context.Context, noticeType domain.NoticeType, channel domain.Channel, language string) (*domain.MessageTemplate, error)
}

type templateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository instantiates repository.
func NewTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepository{pool: pool}
}

func (r *templateRepository) Find(ctx context.Context, noticeType domain.NoticeType, channel domain.Channel, language string) (*domain.MessageTemplate, error) {
	const query = `
        SELECT id, name, notice_type, channel, language, subject, body, variables, created_at, updated_at
        FROM message_templates
        WHERE notice_type=$1 AND channel=$2 AND language=$3`
	var t domain.MessageTemplate
	err := r.pool.QueryRow(ctx, query, noticeType, channel, language).Scan(
		&t.ID,
		&t.Name,
		&t.NoticeType,
		&t.Channel,
		&t.Language,
		&t.Subject,
		&t.Body,
		&t.Variables,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, util.NewTemplateNotFound(string(noticeType), string(channel), language)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
