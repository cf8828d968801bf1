package service

import (
	"context"
	"reflect"
	"testing"
	"time"

	"tempspec/internal/authz"
	"tempspec/internal/model"
	"tempspec/internal/repository"
)

func TestStatisticsService_GetStatistics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	stats := NewStatisticsService(repository.NewStatisticsRepository(env.db))

	first := env.create(t, editor, basicRequest("first"))
	env.create(t, editor, basicRequest("second"))
	chen := basicRequest("third")
	chen.Applicant = "Chen"
	third := env.create(t, editor, chen)

	if _, err := env.specs.Activate(ctx, admin, first.ID, UploadedFile{Name: "s.pdf", Data: []byte("signed")}); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if _, err := env.specs.Extend(ctx, editor, first.ID, ExtendRequest{NewEndDate: "2025-04-10"}, nil); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if _, err := env.specs.Terminate(ctx, editor, third.ID, TerminateRequest{Reason: "withdrawn"}); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	env.clock.Set(time.Date(2025, time.April, 2, 8, 0, 0, 0, time.UTC))
	env.create(t, editor, basicRequest("april"))

	res, err := stats.GetStatistics(ctx, viewer,
		time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}

	if res.TotalCreated != 3 {
		t.Errorf("TotalCreated = %d, want 3", res.TotalCreated)
	}
	if res.TotalExtensions != 1 {
		t.Errorf("TotalExtensions = %d, want 1", res.TotalExtensions)
	}
	wantStatus := map[string]int64{
		model.SpecPendingApproval: 1,
		model.SpecActive:          1,
		model.SpecExpired:         0,
		model.SpecTerminated:      1,
	}
	if !reflect.DeepEqual(res.ByStatus, wantStatus) {
		t.Errorf("ByStatus = %v, want %v", res.ByStatus, wantStatus)
	}
	wantTop := []model.ApplicantRanking{
		{Applicant: "Lin", TotalSpecs: 2, Extensions: 1},
		{Applicant: "Chen", TotalSpecs: 1, Extensions: 0},
	}
	if !reflect.DeepEqual(res.TopApplicants, wantTop) {
		t.Errorf("TopApplicants = %+v, want %+v", res.TopApplicants, wantTop)
	}

	april, err := stats.GetStatistics(ctx, viewer,
		time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetStatistics april: %v", err)
	}
	if april.TotalCreated != 1 || april.ByStatus[model.SpecPendingApproval] != 1 {
		t.Errorf("single-day range = %+v", april)
	}
}

func TestStatisticsService_Errors(t *testing.T) {
	env := newTestEnv(t)
	stats := NewStatisticsService(repository.NewStatisticsRepository(env.db))
	day := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)

	_, err := stats.GetStatistics(context.Background(), viewer, day, day.AddDate(0, 0, -1))
	requireErrorIs(t, err, ErrValidation)

	_, err = stats.GetStatistics(context.Background(), authz.Actor{}, day, day)
	requireErrorIs(t, err, ErrForbidden)

	empty, err := stats.GetStatistics(context.Background(), viewer, day, day)
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if empty.TotalCreated != 0 || len(empty.TopApplicants) != 0 || empty.TopApplicants == nil {
		t.Errorf("empty range = %+v", empty)
	}
}
