package store

import (
	"context"
	"sort"

	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/google/uuid"
)

// SaveTranslation stamps UpdatedAt with the save time and returns the stored job.
func (s *Storage) SaveTranslation(ctx context.Context, job chatModel.TranslationJob) (chatModel.TranslationJob, error) {
	if job.Id == "" {
		job.Id = uuid.NewString()
	}
	now := s.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if err := s.write(ctx, Translations, job.Id, job); err != nil {
		return job, err
	}
	return job, nil
}

func (s *Storage) Translation(ctx context.Context, id string) (chatModel.TranslationJob, error) {
	return read[chatModel.TranslationJob](ctx, s.backend, Translations, id)
}

// Translations lists jobs most recently updated first.
func (s *Storage) Translations(ctx context.Context) ([]chatModel.TranslationJob, error) {
	list, err := readAll[chatModel.TranslationJob](ctx, s.backend, Translations)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].Id < list[j].Id
		}
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return list, nil
}

func (s *Storage) DeleteTranslation(ctx context.Context, id string) error {
	return s.remove(ctx, Translations, id)
}
