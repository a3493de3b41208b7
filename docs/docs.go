// Package docs holds the swagger document served under /swagger.
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
        "/chains": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Escrow"],
                "summary": "List supported chains",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/view.Response"}}
                }
            }
        },
        "/escrows/snapshots": {
            "get": {
                "description": "Returns the last successfully scanned history of every escrow",
                "produces": ["application/json"],
                "tags": ["Escrow"],
                "summary": "List stored escrow histories",
                "operationId": "listEscrowSnapshots",
                "parameters": [
                    {"type": "string", "description": "filter by chain", "name": "chain", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/view.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/view.ErrorResponse"}}
                }
            }
        },
        "/escrows/{chain}/{address}/transfers": {
            "get": {
                "description": "Rebuilds the stablecoin transfers in and out of an escrow account, newest first",
                "produces": ["application/json"],
                "tags": ["Escrow"],
                "summary": "Get escrow transfer history",
                "operationId": "getEscrowTransfers",
                "parameters": [
                    {"type": "string", "description": "chain name or chain id", "name": "chain", "in": "path", "required": true},
                    {"type": "string", "description": "escrow account address", "name": "address", "in": "path", "required": true},
                    {"type": "integer", "description": "days of history, defaults to 3", "name": "days", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/view.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/view.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/view.ErrorResponse"}}
                }
            }
        },
        "/history-sessions": {
            "post": {
                "description": "Starts browsing the history of one escrow with the smallest window",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["History Session"],
                "summary": "Open a history session",
                "operationId": "createHistorySession",
                "parameters": [
                    {"description": "escrow to browse", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/escrow.SessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/view.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/view.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/view.ErrorResponse"}}
                }
            }
        },
        "/history-sessions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["History Session"],
                "summary": "Get a history session",
                "parameters": [
                    {"type": "string", "description": "session id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/view.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/view.ErrorResponse"}}
                }
            }
        },
        "/history-sessions/{id}/select": {
            "post": {
                "description": "Resets the window and drops results of scans still running for the previous escrow",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["History Session"],
                "summary": "Switch a session to another escrow",
                "parameters": [
                    {"type": "string", "description": "session id", "name": "id", "in": "path", "required": true},
                    {"description": "escrow to browse", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/escrow.SessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/view.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/view.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/view.ErrorResponse"}}
                }
            }
        },
        "/history-sessions/{id}/more": {
            "post": {
                "description": "Extends the window by one step, up to the maximum, and rescans",
                "produces": ["application/json"],
                "tags": ["History Session"],
                "summary": "Extend a session window",
                "parameters": [
                    {"type": "string", "description": "session id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/view.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/view.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/view.ErrorResponse"}}
                }
            }
        },
        "/history-sessions/{id}/refresh": {
            "post": {
                "produces": ["application/json"],
                "tags": ["History Session"],
                "summary": "Rescan a session window",
                "parameters": [
                    {"type": "string", "description": "session id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/view.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/view.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/view.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "escrow.SessionRequest": {
            "type": "object",
            "required": ["chain", "escrow_address"],
            "properties": {
                "chain": {"type": "string"},
                "escrow_address": {"type": "string"}
            }
        },
        "view.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"},
                "request": {}
            }
        },
        "view.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Escrow History API",
	Description:      "Rebuilds stablecoin deposit and withdrawal history of escrow accounts on EVM chains.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
