package service

import (
	"context"

	"codeduel/internal/common"
	"codeduel/internal/domain/model"
	"codeduel/internal/platform/judge0"
)

// LanguageCatalog is the judge's list of languages users may submit in.
type LanguageCatalog interface {
	Languages(ctx context.Context) ([]judge0.Language, error)
	LanguageAllowed(id int) bool
}

type LanguageService struct {
	catalog LanguageCatalog
}

func NewLanguageService(catalog LanguageCatalog) *LanguageService {
	return &LanguageService{catalog: catalog}
}

func (s *LanguageService) List(ctx context.Context) ([]model.Language, error) {
	langs, err := s.catalog.Languages(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Language, 0, len(langs))
	for _, l := range langs {
		out = append(out, model.Language{ID: l.ID, Name: l.Name})
	}
	return out, nil
}

func checkLanguage(catalog LanguageCatalog, languageID int) error {
	if !catalog.LanguageAllowed(languageID) {
		return common.Errorf("%w: language %d is not supported", common.ErrBadRequest, languageID)
	}
	return nil
}
