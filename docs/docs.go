// Package docs registers the OpenAPI description of the reprint hub auth API.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

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
        "/api/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [
                    {"description": "Login credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Logout",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/auth/refresh": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Refresh token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.userResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/auth/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Auth history",
                "parameters": [
                    {"type": "integer", "description": "Maximum number of events (1-100, default 20)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.historyResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/auth/validate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Validate token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.validateResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/auth/sso-code": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["sso"],
                "summary": "Generate SSO code",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.ssoCodeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/auth/sso-exchange": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sso"],
                "summary": "Exchange SSO code",
                "parameters": [
                    {"description": "One-time code", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.ssoExchangeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.ssoExchangeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/client-settings": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Desktop client settings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.clientSettingsResponse"}}
                }
            }
        },
        "/sso/callback": {
            "get": {
                "produces": ["text/html"],
                "tags": ["sso"],
                "summary": "SSO browser callback",
                "parameters": [
                    {"type": "string", "description": "One-time code", "name": "code", "in": "query", "required": true}
                ],
                "responses": {
                    "302": {"description": "Found"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"}
                }
            }
        }
    },
    "definitions": {
        "domain.Profile": {
            "type": "object",
            "properties": {
                "uid": {"type": "string"},
                "username": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string", "x-nullable": true},
                "role_id": {"type": "string"},
                "id": {"type": "integer"},
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "phone": {"type": "string"},
                "role_name": {"type": "string", "x-nullable": true},
                "status": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "handler.authResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/domain.Profile"}
            }
        },
        "handler.clientSettingsResponse": {
            "type": "object",
            "properties": {
                "session_lifetime_days": {"type": "integer"}
            }
        },
        "handler.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "INVALID_CREDENTIALS"},
                "message": {"type": "string", "example": "Invalid username or password."}
            }
        },
        "handler.loginRequest": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {
                "password": {"type": "string"},
                "username": {"type": "string", "maxLength": 255}
            }
        },
        "handler.messageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "handler.ssoCodeResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "expires_at": {"type": "string"}
            }
        },
        "handler.ssoExchangeRequest": {
            "type": "object",
            "required": ["code"],
            "properties": {
                "code": {"type": "string", "minLength": 64, "maxLength": 64}
            }
        },
        "handler.ssoExchangeResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "user": {"$ref": "#/definitions/domain.Profile"}
            }
        },
        "domain.AuthEvent": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "example": "login_succeeded"},
                "user_id": {"type": "integer"},
                "username": {"type": "string"},
                "surface": {"type": "string", "example": "api"},
                "ip": {"type": "string"},
                "occurred_at": {"type": "string", "format": "date-time"}
            }
        },
        "handler.historyResponse": {
            "type": "object",
            "properties": {
                "events": {"type": "array", "items": {"$ref": "#/definitions/domain.AuthEvent"}}
            }
        },
        "handler.userResponse": {
            "type": "object",
            "properties": {
                "user": {"$ref": "#/definitions/domain.Profile"}
            }
        },
        "handler.validateResponse": {
            "type": "object",
            "properties": {
                "valid": {"type": "boolean"},
                "user": {"$ref": "#/definitions/domain.Profile"}
            }
        }
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
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Reprint Hub Auth API",
	Description:      "Desktop login, token lifecycle and SSO hand-off for the reprint tracker.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
