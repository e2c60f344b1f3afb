// Package docs registra el documento OpenAPI que sirve /swagger/*.
// Se regenera con: swag init -g cmd/api/main.go
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
        "/capabilities/catalog": {
            "get": {
                "produces": ["application/json"],
                "tags": ["capabilities"],
                "summary": "List the capability catalog",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {"$ref": "#/definitions/capabilities.catalogEntryResponse"}
                        }
                    }
                }
            }
        },
        "/capabilities/resolve": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["capabilities"],
                "summary": "Resolve capabilities (JSON body)",
                "parameters": [
                    {
                        "description": "Entity reference",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/capabilities.resolveRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}
                    },
                    "400": {"description": "Bad Request", "schema": {"type": "string"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}}
                }
            }
        },
        "/entities/{entityType}/{entityID}/capabilities": {
            "get": {
                "produces": ["application/json"],
                "tags": ["capabilities"],
                "summary": "Resolve capabilities for an entity",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Entity type (e.g. Event, performance_agency)",
                        "name": "entityType",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Entity UUID",
                        "name": "entityID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}
                    },
                    "400": {"description": "Bad Request", "schema": {"type": "string"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}}
                }
            }
        },
        "/entities/{entityType}/{entityID}/permissions/{permission}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["capabilities"],
                "summary": "Check a single permission on an entity",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Entity type",
                        "name": "entityType",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Entity UUID",
                        "name": "entityID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Permission (e.g. MANAGE_MEMBERS)",
                        "name": "permission",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/capabilities.permissionCheckResponse"}
                    },
                    "400": {"description": "Bad Request", "schema": {"type": "string"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "capabilities.catalogEntryResponse": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "permission": {"type": "string"}
            }
        },
        "capabilities.permissionCheckResponse": {
            "type": "object",
            "properties": {
                "allowed": {"type": "boolean"},
                "entity_id": {"type": "string"},
                "entity_type": {"type": "string"},
                "permission": {"type": "string"}
            }
        },
        "capabilities.resolveRequest": {
            "type": "object",
            "properties": {
                "entity_id": {"type": "string"},
                "entity_type": {"type": "string"}
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
	Title:            "Tourify Capabilities API",
	Description:      "Entity-scoped capability resolution for the Tourify entity pages.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
