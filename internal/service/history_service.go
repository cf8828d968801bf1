package service

import (
	"context"
	"fmt"
	"time"

	"tempspec/internal/authz"
	"tempspec/internal/repository"
)

type HistoryEntryResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

type SpecHistoryResponse struct {
	Spec    SpecResponse           `json:"spec"`
	Entries []HistoryEntryResponse `json:"entries"`
}

type HistoryService interface {
	ForSpec(ctx context.Context, actor authz.Actor, specID string) (*SpecHistoryResponse, error)
}

type historyService struct {
	specs   repository.SpecRepository
	history repository.HistoryRepository
}

func NewHistoryService(specs repository.SpecRepository, history repository.HistoryRepository) HistoryService {
	return &historyService{specs: specs, history: history}
}

// ForSpec returns the spec with its history, newest entry first
func (s *historyService) ForSpec(ctx context.Context, actor authz.Actor, specID string) (*SpecHistoryResponse, error) {
	if err := authorize(actor, authz.ActionView); err != nil {
		return nil, err
	}
	id, err := parseID(specID)
	if err != nil {
		return nil, err
	}
	spec, err := s.specs.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "spec")
	}

	entries, err := s.history.ListBySpec(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	res := &SpecHistoryResponse{
		Spec:    *toSpecResponse(spec),
		Entries: make([]HistoryEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		username := "System"
		userID := ""
		if e.User != nil {
			username = e.User.Username
		}
		if e.UserID != nil {
			userID = e.UserID.String()
		}
		res.Entries = append(res.Entries, HistoryEntryResponse{
			ID:        e.ID.String(),
			UserID:    userID,
			Username:  username,
			Action:    e.Action,
			Details:   e.Details,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	return res, nil
}
