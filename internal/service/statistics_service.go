package service

import (
	"context"
	"time"

	"tempspec/internal/authz"
	"tempspec/internal/model"
	"tempspec/internal/repository"
)

const topApplicantsLimit = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context, actor authz.Actor, startDate, endDate time.Time) (*model.StatisticsResponse, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo}
}

// GetStatistics counts specs created between startDate and endDate, both
// calendar days inclusive
func (s *statisticsService) GetStatistics(ctx context.Context, actor authz.Actor, startDate, endDate time.Time) (*model.StatisticsResponse, error) {
	if err := authorize(actor, authz.ActionView); err != nil {
		return nil, err
	}
	start := model.DateOf(startDate)
	end := model.DateOf(endDate)
	if end.Before(start) {
		return nil, validationError("end_date must not be before start_date")
	}
	until := end.AddDate(0, 0, 1)

	counts, err := s.repo.CountByStatus(ctx, start, until)
	if err != nil {
		return nil, err
	}
	response := &model.StatisticsResponse{
		ByStatus: map[string]int64{
			model.SpecPendingApproval: 0,
			model.SpecActive:          0,
			model.SpecExpired:         0,
			model.SpecTerminated:      0,
		},
		TimeRangeStartDate: start,
		TimeRangeEndDate:   end,
	}
	for _, c := range counts {
		response.ByStatus[c.Status] = c.Count
		response.TotalCreated += c.Count
	}

	if response.TotalExtensions, err = s.repo.TotalExtensions(ctx, start, until); err != nil {
		return nil, err
	}
	if response.TopApplicants, err = s.repo.TopApplicants(ctx, start, until, topApplicantsLimit); err != nil {
		return nil, err
	}
	if response.TopApplicants == nil {
		response.TopApplicants = []model.ApplicantRanking{}
	}
	return response, nil
}
