package controller

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OpenAPI serves the machine-readable API description.
func (h *Handler) OpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", h.openapi)
}

// renderOpenAPI fills the service version into the document.
func renderOpenAPI(version string) []byte {
	v, _ := json.Marshal(version)
	return []byte(strings.Replace(openAPIJSON, `"version": "{{version}}"`, `"version": `+string(v), 1))
}

// Docs serves a swagger-ui page that loads /openapi.json.
func (h *Handler) Docs(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(docsHTML))
}

const docsHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Todo API - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({ url: '/openapi.json', dom_id: '#swagger-ui' })
    </script>
  </body>
</html>`

const openAPIJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "Todo API", "version": "{{version}}" },
  "components": {
    "schemas": {
      "Todo": {
        "type": "object",
        "required": ["id", "title", "description", "is_completed", "created_at", "updated_at"],
        "properties": {
          "id": { "type": "string", "format": "uuid" },
          "title": { "type": "string", "minLength": 1, "maxLength": 200 },
          "description": { "type": "string", "maxLength": 2000, "nullable": true },
          "is_completed": { "type": "boolean" },
          "created_at": { "type": "string", "format": "date-time" },
          "updated_at": { "type": "string", "format": "date-time" }
        }
      },
      "TodoCreate": {
        "type": "object",
        "required": ["title"],
        "properties": {
          "title": { "type": "string", "minLength": 1, "maxLength": 200 },
          "description": { "type": "string", "maxLength": 2000, "nullable": true }
        }
      },
      "TodoUpdate": {
        "type": "object",
        "properties": {
          "title": { "type": "string", "minLength": 1, "maxLength": 200 },
          "description": { "type": "string", "maxLength": 2000, "nullable": true },
          "is_completed": { "type": "boolean" }
        }
      },
      "Stats": {
        "type": "object",
        "properties": {
          "total": { "type": "integer" },
          "completed": { "type": "integer" },
          "pending": { "type": "integer" },
          "completion_rate": { "type": "number" }
        }
      }
    }
  },
  "paths": {
    "/": { "get": { "tags": ["Health"], "summary": "Service status and version", "responses": { "200": { "description": "running" } } } },
    "/todos": {
      "get": {
        "tags": ["Todos"],
        "summary": "List todos with optional filtering and pagination",
        "parameters": [
          { "name": "skip", "in": "query", "schema": { "type": "integer", "default": 0, "minimum": 0 } },
          { "name": "limit", "in": "query", "schema": { "type": "integer", "default": 100, "minimum": 1, "maximum": 100 } },
          { "name": "completed", "in": "query", "schema": { "type": "boolean" } },
          { "name": "search", "in": "query", "schema": { "type": "string" } }
        ],
        "responses": {
          "200": { "description": "todos", "content": { "application/json": { "schema": { "type": "array", "items": { "$ref": "#/components/schemas/Todo" } } } } },
          "422": { "description": "invalid query parameter" }
        }
      },
      "post": {
        "tags": ["Todos"],
        "summary": "Create a todo",
        "requestBody": { "required": true, "content": { "application/json": { "schema": { "$ref": "#/components/schemas/TodoCreate" } } } },
        "responses": { "201": { "description": "created", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Todo" } } } }, "422": { "description": "validation error" } }
      }
    },
    "/todos/{id}": {
      "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } } ],
      "get": { "tags": ["Todos"], "summary": "Get a todo", "responses": { "200": { "description": "todo" }, "404": { "description": "not found" } } },
      "put": {
        "tags": ["Todos"],
        "summary": "Update a todo",
        "requestBody": { "required": true, "content": { "application/json": { "schema": { "$ref": "#/components/schemas/TodoUpdate" } } } },
        "responses": { "200": { "description": "updated" }, "404": { "description": "not found" }, "422": { "description": "validation error" } }
      },
      "delete": { "tags": ["Todos"], "summary": "Delete a todo", "responses": { "204": { "description": "deleted" }, "404": { "description": "not found" } } }
    },
    "/todos/{id}/toggle": {
      "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } } ],
      "patch": { "tags": ["Todos"], "summary": "Toggle completion", "responses": { "200": { "description": "toggled" }, "404": { "description": "not found" } } }
    },
    "/todos/stats/summary": {
      "get": { "tags": ["Stats"], "summary": "Summary statistics", "responses": { "200": { "description": "stats", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Stats" } } } } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "OK" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
