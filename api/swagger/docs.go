// Package swagger holds the OpenAPI document served at /swagger/index.html.
// Regenerate with: swag init -g cmd/api/main.go -o api/swagger
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/login": {"post": {"tags": ["auth"], "summary": "Login user"}},
        "/api/refresh": {"post": {"tags": ["auth"], "summary": "Refresh token"}},
        "/api/logout": {"post": {"tags": ["auth"], "summary": "Logout"}},
        "/api/me": {"get": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Get current user"}},
        "/api/users": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "List users"},
            "post": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Create a new user"}
        },
        "/api/users/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Get user by ID"},
            "put": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Update user"},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Delete user"}
        },
        "/api/specs": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["specs"], "summary": "List temporary specs"},
            "post": {"security": [{"BearerAuth": []}], "tags": ["specs"], "summary": "Create a temporary spec"}
        },
        "/api/specs/next-code": {"get": {"security": [{"BearerAuth": []}], "tags": ["specs"], "summary": "Preview the next spec code"}},
        "/api/specs/preview": {"post": {"security": [{"BearerAuth": []}], "tags": ["specs"], "summary": "Preview the PDF of unsaved form data"}},
        "/api/specs/expire": {"post": {"security": [{"BearerAuth": []}], "tags": ["specs"], "summary": "Expire overdue specs now"}},
        "/api/specs/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["specs"], "summary": "Get a spec"},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["specs"], "summary": "Delete a spec"}
        },
        "/api/specs/{id}/history": {"get": {"security": [{"BearerAuth": []}], "tags": ["specs"], "summary": "Spec history"}},
        "/api/specs/{id}/download/{artifact}": {"get": {"security": [{"BearerAuth": []}], "tags": ["specs"], "summary": "Download a spec document"}},
        "/api/specs/{id}/activate": {"post": {"security": [{"BearerAuth": []}], "tags": ["specs"], "summary": "Activate a spec"}},
        "/api/specs/{id}/extend": {"post": {"security": [{"BearerAuth": []}], "tags": ["specs"], "summary": "Extend an active spec"}},
        "/api/specs/{id}/terminate": {"post": {"security": [{"BearerAuth": []}], "tags": ["specs"], "summary": "Terminate a spec"}},
        "/api/statistics": {"get": {"security": [{"BearerAuth": []}], "tags": ["statistics"], "summary": "Get Dashboard Statistics"}},
        "/api/activity": {"get": {"security": [{"BearerAuth": []}], "tags": ["audit"], "summary": "Get activity feed"}},
        "/api/images": {"post": {"security": [{"BearerAuth": []}], "tags": ["images"], "summary": "Upload an inline image"}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Temporary Specification API",
	Description:      "Lifecycle, document generation and history of temporary specifications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
