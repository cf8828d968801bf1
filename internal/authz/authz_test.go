package authz

import (
	"testing"

	"tempspec/internal/model"

	"github.com/google/uuid"
)

func TestCheck(t *testing.T) {
	t.Parallel()

	viewer := Actor{UserID: uuid.New(), Role: model.RoleViewer}
	editor := Actor{UserID: uuid.New(), Role: model.RoleEditor}
	admin := Actor{UserID: uuid.New(), Role: model.RoleAdmin}

	tests := []struct {
		name   string
		actor  Actor
		action Action
		want   bool
	}{
		{"viewer views", viewer, ActionView, true},
		{"viewer previews", viewer, ActionPreview, true},
		{"viewer cannot create", viewer, ActionCreate, false},
		{"editor creates", editor, ActionCreate, true},
		{"editor extends", editor, ActionExtend, true},
		{"editor terminates", editor, ActionTerminate, true},
		{"editor cannot activate", editor, ActionActivate, false},
		{"editor cannot delete", editor, ActionDelete, false},
		{"admin activates", admin, ActionActivate, true},
		{"admin deletes", admin, ActionDelete, true},
		{"admin manages users", admin, ActionManageUsers, true},
		{"admin reads activity", admin, ActionAudit, true},
		{"editor cannot read activity", editor, ActionAudit, false},
		{"system expires", System(), ActionExpire, true},
		{"system cannot create", System(), ActionCreate, false},
		{"anonymous denied", Actor{}, ActionView, false},
		{"unknown action", admin, Action("fly"), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Check(tt.actor, tt.action)
			if got.Allowed != tt.want {
				t.Errorf("Check(%q, %q).Allowed = %v, want %v (reason %q)", tt.actor.Role, tt.action, got.Allowed, tt.want, got.Reason)
			}
			if !got.Allowed && got.Reason == "" {
				t.Error("denied decision has empty reason")
			}
			if (got.Err() == nil) != got.Allowed {
				t.Errorf("Err() = %v, inconsistent with Allowed=%v", got.Err(), got.Allowed)
			}
		})
	}
}
