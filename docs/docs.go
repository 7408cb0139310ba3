package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "https://surveyhub.app/terms",
        "contact": {
            "name": "API Support",
            "email": "support@surveyhub.app"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Aggregated dependency health",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/public/surveys/{uniqueId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["surveys"],
                "summary": "Get a published survey",
                "parameters": [
                    {"type": "string", "description": "Public survey ID", "name": "uniqueId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Survey not found"}
                }
            }
        },
        "/invitations/{token}/decline": {
            "post": {
                "security": [{"CookieAuth": []}],
                "produces": ["application/json"],
                "tags": ["invitations"],
                "summary": "Decline invitation",
                "parameters": [
                    {"type": "string", "description": "Invitation token", "name": "token", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Expired or no longer pending"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Invitation is for another email"},
                    "404": {"description": "Invitation not found"}
                }
            }
        },
        "/organizations/{id}/permissions": {
            "get": {
                "security": [{"CookieAuth": []}],
                "produces": ["application/json"],
                "tags": ["organizations"],
                "summary": "Get my permissions in an organization",
                "parameters": [
                    {"type": "string", "description": "Organization ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Not a member"},
                    "404": {"description": "Organization not found"}
                }
            }
        },
        "/usage/{resource}": {
            "get": {
                "security": [{"CookieAuth": []}],
                "produces": ["application/json"],
                "tags": ["usage"],
                "summary": "Get resource usage",
                "parameters": [
                    {"type": "string", "description": "members, organizations or surveys", "name": "resource", "in": "path", "required": true},
                    {"type": "string", "description": "Organization ID", "name": "organizationId", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad request"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/user/subscription-status": {
            "get": {
                "security": [{"CookieAuth": []}],
                "produces": ["application/json"],
                "tags": ["billing"],
                "summary": "Get subscription status",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the session token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        },
        "CookieAuth": {
            "type": "apiKey",
            "name": "surveyhub_session",
            "in": "cookie"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8000",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "SurveyHub API",
	Description:      "Central API documentation for the SurveyHub services",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
