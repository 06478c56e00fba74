// Package docs registers the OpenAPI document served at /swagger.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/open-continuous": {"post": {"consumes": ["application/octet-stream"], "tags": ["door"], "summary": "Open while held", "responses": {"202": {"description": "Accepted"}, "503": {"description": "Command listener not running"}}}},
        "/close-continuous": {"post": {"consumes": ["application/octet-stream"], "tags": ["door"], "summary": "Close while held", "responses": {"202": {"description": "Accepted"}, "503": {"description": "Command listener not running"}}}},
        "/open-fully": {"post": {"consumes": ["application/octet-stream"], "tags": ["door"], "summary": "Open to the end stop", "responses": {"202": {"description": "Accepted"}, "503": {"description": "Command listener not running"}}}},
        "/close-fully": {"post": {"consumes": ["application/octet-stream"], "tags": ["door"], "summary": "Close to the end stop", "responses": {"202": {"description": "Accepted"}, "503": {"description": "Command listener not running"}}}},
        "/stop": {"post": {"consumes": ["application/octet-stream"], "tags": ["door"], "summary": "Soft stop", "responses": {"202": {"description": "Accepted"}, "503": {"description": "Command listener not running"}}}},
        "/configure-thresholds": {
            "post": {
                "description": "Body is the 8-byte big-endian DoorConfig: opening current, closing current, handle time (ms), 2 reserved bytes.",
                "consumes": ["application/octet-stream"],
                "tags": ["door"],
                "summary": "Configure thresholds",
                "responses": {"202": {"description": "Accepted"}, "400": {"description": "Body is not 8 bytes"}}
            }
        },
        "/state": {
            "get": {
                "produces": ["application/json"],
                "tags": ["door"],
                "summary": "Door state",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DoorSnapshot"}}}
            }
        },
        "/logs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["logs"],
                "summary": "Motion event history",
                "parameters": [
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"enum": ["TRANSITION", "CONFIGURE", "FAULT", "DOOR_PRESENCE"], "type": "string", "name": "type", "in": "query"},
                    {"enum": ["left_door", "right_door"], "type": "string", "name": "door", "in": "query"}
                ],
                "responses": {"200": {"description": "count, events"}, "400": {"description": "Bad Request"}, "500": {"description": "Internal Server Error"}}
            }
        },
        "/ws": {"get": {"tags": ["door"], "summary": "Door state stream", "responses": {"101": {"description": "Switching Protocols"}}}},
        "/auth/sign-up": {
            "post": {
                "consumes": ["application/json"], "produces": ["application/json"], "tags": ["auth"],
                "summary": "Register an operator",
                "parameters": [{"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.authCredentials"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/auth/sign-in": {
            "post": {
                "consumes": ["application/json"], "produces": ["application/json"], "tags": ["auth"],
                "summary": "Obtain a bearer token",
                "parameters": [{"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.authCredentials"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/doors": {
            "get": {
                "security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["hub"],
                "summary": "List doors",
                "responses": {"200": {"description": "count, doors"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/doors/{door}/command": {
            "post": {
                "security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["hub"],
                "summary": "Send a command to a door",
                "parameters": [
                    {"enum": ["left_door", "right_door"], "type": "string", "name": "door", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.DoorCommandRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Unknown door"}, "502": {"description": "Bad Gateway"}, "503": {"description": "Door unreachable"}}
            }
        },
        "/api/v1/config": {
            "get": {
                "security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["hub"],
                "summary": "Current thresholds",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DoorConfig"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["hub"],
                "summary": "Push thresholds",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ThresholdsRequest"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "502": {"description": "Bad Gateway"}}
            }
        },
        "/api/v1/logs": {
            "get": {
                "security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["logs"],
                "summary": "Motion event history",
                "parameters": [
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"enum": ["TRANSITION", "CONFIGURE", "FAULT", "DOOR_PRESENCE"], "type": "string", "name": "type", "in": "query"},
                    {"enum": ["left_door", "right_door"], "type": "string", "name": "door", "in": "query"}
                ],
                "responses": {"200": {"description": "count, events"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "500": {"description": "Internal Server Error"}}
            }
        }
    },
    "definitions": {
        "handlers.authCredentials": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {"password": {"type": "string"}, "username": {"type": "string"}}
        },
        "handlers.DoorCommandRequest": {
            "type": "object",
            "required": ["command"],
            "properties": {"command": {"type": "string", "example": "open-fully"}}
        },
        "handlers.ThresholdsRequest": {
            "type": "object",
            "required": ["closing_current_threshold", "handle_time_threshold_ms", "opening_current_threshold"],
            "properties": {
                "closing_current_threshold": {"type": "integer", "example": 20},
                "handle_time_threshold_ms": {"type": "integer", "example": 300},
                "opening_current_threshold": {"type": "integer", "example": 20}
            }
        },
        "models.DoorConfig": {
            "type": "object",
            "properties": {
                "closing_current_threshold": {"type": "integer"},
                "handle_time_threshold_ms": {"type": "integer"},
                "opening_current_threshold": {"type": "integer"}
            }
        },
        "models.DoorSnapshot": {
            "type": "object",
            "properties": {
                "active": {"type": "boolean"},
                "config": {"$ref": "#/definitions/models.DoorConfig"},
                "debug": {"type": "boolean"},
                "fault_count": {"type": "integer"},
                "identity": {"type": "string"},
                "last_handle_time": {"type": "string"},
                "state": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Power Windows API",
	Description:      "Door node command endpoints and hub operator API.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
