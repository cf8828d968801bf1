package service

import (
	"context"
	"reflect"
	"testing"
	"time"

	"tempspec/internal/authz"
	"tempspec/internal/model"
)

func TestHistoryService_ForSpecNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice", model.RoleEditor)
	boss := env.createUser(t, "boss", model.RoleAdmin)
	aliceActor := authz.Actor{UserID: alice.ID, Role: alice.Role}
	bossActor := authz.Actor{UserID: boss.ID, Role: boss.Role}

	spec := env.create(t, aliceActor, basicRequest("history"))
	if _, err := env.specs.Activate(ctx, bossActor, spec.ID, UploadedFile{Name: "s.pdf", Data: []byte("signed")}); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if _, err := env.specs.Extend(ctx, aliceActor, spec.ID, ExtendRequest{NewEndDate: "2025-04-10"}, nil); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	env.clock.Set(time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC))
	if _, err := env.specs.ExpireDue(ctx, authz.System()); err != nil {
		t.Fatalf("ExpireDue: %v", err)
	}

	res, err := env.history.ForSpec(ctx, viewer, spec.ID)
	if err != nil {
		t.Fatalf("ForSpec: %v", err)
	}
	if res.Spec.Status != model.SpecExpired {
		t.Errorf("spec status = %s", res.Spec.Status)
	}

	var actions, users []string
	for _, e := range res.Entries {
		actions = append(actions, e.Action)
		users = append(users, e.Username)
	}
	wantActions := []string{model.ActionExpireSpec, model.ActionExtendSpec, model.ActionActivateSpec, model.ActionCreateSpec}
	wantUsers := []string{"System", "alice", "boss", "alice"}
	if !reflect.DeepEqual(actions, wantActions) {
		t.Errorf("actions = %v, want %v", actions, wantActions)
	}
	if !reflect.DeepEqual(users, wantUsers) {
		t.Errorf("users = %v, want %v", users, wantUsers)
	}
	if res.Entries[0].UserID != "" {
		t.Errorf("system entry user id = %q, want empty", res.Entries[0].UserID)
	}
	if res.Entries[1].Details != "extended end date to 2025-04-10" {
		t.Errorf("extend details = %q", res.Entries[1].Details)
	}
}

func TestHistoryService_DeletedUserShowsSystem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	temp := env.createUser(t, "temp", model.RoleEditor)
	spec := env.create(t, authz.Actor{UserID: temp.ID, Role: temp.Role}, basicRequest("orphan"))
	if err := env.users.Delete(ctx, temp.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	res, err := env.history.ForSpec(ctx, viewer, spec.ID)
	if err != nil {
		t.Fatalf("ForSpec: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Username != "System" {
		t.Errorf("entries = %+v", res.Entries)
	}
}

func TestHistoryService_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.history.ForSpec(ctx, viewer, "not-a-uuid")
	requireErrorIs(t, err, ErrValidation)

	_, err = env.history.ForSpec(ctx, authz.Actor{}, "not-a-uuid")
	requireErrorIs(t, err, ErrForbidden)
}
