// Package authz decides whether an actor may perform a lifecycle action.
package authz

import (
	"fmt"

	"tempspec/internal/model"

	"github.com/google/uuid"
)

// Action names a guarded operation
type Action string

const (
	ActionView         Action = "view"
	ActionCreate       Action = "create"
	ActionPreview      Action = "preview"
	ActionActivate     Action = "activate"
	ActionExtend       Action = "extend"
	ActionTerminate    Action = "terminate"
	ActionDelete       Action = "delete"
	ActionDownloadWord Action = "download_word"
	ActionUploadImage  Action = "upload_image"
	ActionManageUsers  Action = "manage_users"
	ActionExpire       Action = "expire"
	ActionAudit        Action = "audit"
)

// Actor is the request-scoped identity passed to every lifecycle operation.
// The zero UserID with RoleSystem identifies scheduled jobs.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// RoleSystem is used by background jobs only; it never appears on a user row
const RoleSystem = "system"

// System returns the actor used by the scheduler and the CLI
func System() Actor {
	return Actor{Role: RoleSystem}
}

// IsSystem reports whether the actor is a background job
func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}

// Decision is the outcome of Check
type Decision struct {
	Allowed bool
	Reason  string
}

// Err converts a denied decision into an error, nil if allowed
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%s", d.Reason)
}

var policy = map[Action][]string{
	ActionView:         {model.RoleViewer, model.RoleEditor, model.RoleAdmin},
	ActionPreview:      {model.RoleViewer, model.RoleEditor, model.RoleAdmin},
	ActionCreate:       {model.RoleEditor, model.RoleAdmin},
	ActionExtend:       {model.RoleEditor, model.RoleAdmin},
	ActionTerminate:    {model.RoleEditor, model.RoleAdmin},
	ActionDownloadWord: {model.RoleEditor, model.RoleAdmin},
	ActionUploadImage:  {model.RoleEditor, model.RoleAdmin},
	ActionActivate:     {model.RoleAdmin},
	ActionDelete:       {model.RoleAdmin},
	ActionManageUsers:  {model.RoleAdmin},
	ActionExpire:       {RoleSystem, model.RoleAdmin},
	ActionAudit:        {model.RoleAdmin},
}

// Check evaluates the static role policy for action
func Check(actor Actor, action Action) Decision {
	roles, ok := policy[action]
	if !ok {
		return Decision{Reason: fmt.Sprintf("unknown action %q", action)}
	}
	if actor.Role == "" {
		return Decision{Reason: "not authenticated"}
	}
	for _, r := range roles {
		if r == actor.Role {
			return Decision{Allowed: true}
		}
	}
	return Decision{Reason: fmt.Sprintf("role %q may not %s", actor.Role, action)}
}
