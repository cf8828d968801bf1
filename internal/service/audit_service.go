package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tempspec/internal/authz"
	"tempspec/internal/model"
	"tempspec/internal/repository"
)

type ActivityResponse struct {
	ID        string `json:"id"`
	SpecID    string `json:"spec_id"`
	SpecCode  string `json:"spec_code"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

// ActivityService is the admin feed of lifecycle actions across all specs
type ActivityService interface {
	List(ctx context.Context, actor authz.Actor, action string, page, limit int) ([]ActivityResponse, int64, error)
}

type activityService struct {
	repo repository.ActivityRepository
}

// NewActivityService creates a new ActivityService instance
func NewActivityService(repo repository.ActivityRepository) ActivityService {
	return &activityService{repo: repo}
}

var historyActions = map[string]bool{
	model.ActionCreateSpec:    true,
	model.ActionActivateSpec:  true,
	model.ActionExtendSpec:    true,
	model.ActionTerminateSpec: true,
	model.ActionExpireSpec:    true,
}

func (s *activityService) List(ctx context.Context, actor authz.Actor, action string, page, limit int) ([]ActivityResponse, int64, error) {
	if err := authorize(actor, authz.ActionAudit); err != nil {
		return nil, 0, err
	}
	action = strings.ToUpper(strings.TrimSpace(action))
	if action != "" && !historyActions[action] {
		return nil, 0, validationError("unknown action %q", action)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}

	entries, total, err := s.repo.List(ctx, action, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activity: %w", err)
	}

	res := make([]ActivityResponse, 0, len(entries))
	for _, e := range entries {
		username := "System"
		userID := ""
		if e.Username != nil {
			username = *e.Username
		}
		if e.UserID != nil {
			userID = e.UserID.String()
		}
		res = append(res, ActivityResponse{
			ID:        e.ID.String(),
			SpecID:    e.SpecID.String(),
			SpecCode:  e.SpecCode,
			UserID:    userID,
			Username:  username,
			Action:    e.Action,
			Details:   e.Details,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	return res, total, nil
}
