package meli

import (
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/storage"
)

// repositoryTokenStore adapts the storage token table to the TokenStore
// contract: reads always see the most recently persisted pair, saves append a
// new pair and keep history.
type repositoryTokenStore struct {
	repo storage.TokenRepository
}

// NewRepositoryTokenStore wraps a storage token repository as a TokenStore
func NewRepositoryTokenStore(repo storage.TokenRepository) TokenStore {
	return &repositoryTokenStore{repo: repo}
}

func (s *repositoryTokenStore) Current() (TokenPair, error) {
	token, err := s.repo.LatestToken()
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}, nil
}

func (s *repositoryTokenStore) Save(pair TokenPair) error {
	return s.repo.SaveToken(pair.AccessToken, pair.RefreshToken)
}
