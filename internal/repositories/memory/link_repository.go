package memory

import (
	"context"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

func (s *Store) SaveLink(_ context.Context, link domain.AccountLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[link.RecipientRef] = link
	return nil
}

func (s *Store) FindLink(_ context.Context, recipientRef string) (*domain.AccountLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[recipientRef]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &link, nil
}
