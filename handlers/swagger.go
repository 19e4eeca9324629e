package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the identity service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>rentwise-identity — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document describing the identity endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "rentwise-identity", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "AuthResult": { "type": "object", "properties": { "user": { "type": "object" }, "accessToken": { "type": "string" } } },
      "Error": { "type": "object", "properties": { "error": { "type": "string" }, "message": { "type": "string" } } }
    }
  },
  "paths": {
    "/auth/register": {
      "post": {
        "summary": "Register with phone and password",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["phone","password","confirmPassword"],"properties":{"phone":{"type":"string","pattern":"^1[3-9]\\d{9}$"},"password":{"type":"string","minLength":6,"maxLength":20},"confirmPassword":{"type":"string"},"nickname":{"type":"string","maxLength":20}}}}}},
        "responses": { "201": { "description": "user and access token" }, "400": { "description": "password_mismatch / password_policy / validation_failed" }, "409": { "description": "duplicate_phone" } }
      }
    },
    "/auth/login": {
      "post": {
        "summary": "Login with phone and password",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"phone":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "user and access token" }, "401": { "description": "invalid_credentials" } }
      }
    },
    "/auth/logout": {
      "post": { "summary": "Revoke the presented access token", "security": [{"bearer": []}], "responses": { "200": { "description": "logged out" }, "401": { "description": "invalid_token" } } }
    },
    "/auth/federated/{provider}/login": {
      "post": {
        "summary": "Login through a third-party provider",
        "parameters": [{ "name": "provider", "in": "path", "required": true, "schema": { "type": "string" } }],
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["code"],"properties":{"code":{"type":"string"},"nickname":{"type":"string"},"avatarUrl":{"type":"string"}}}}}},
        "responses": { "200": { "description": "user and access token" }, "502": { "description": "federation_exchange_failed" } }
      }
    },
    "/wechat/login": {
      "post": { "summary": "WeChat mini-program login", "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["code"],"properties":{"code":{"type":"string"},"nickname":{"type":"string"},"avatarUrl":{"type":"string"}}}}}}, "responses": { "200": { "description": "user and access token" }, "502": { "description": "federation_exchange_failed" } } }
    },
    "/users/me": {
      "get": { "summary": "Current user profile", "security": [{"bearer": []}], "responses": { "200": { "description": "user" }, "401": { "description": "invalid_token / unknown_subject" } } },
      "patch": { "summary": "Update nickname or avatar", "security": [{"bearer": []}], "responses": { "200": { "description": "user" } } }
    },
    "/users/me/password": {
      "put": { "summary": "Change password", "security": [{"bearer": []}], "responses": { "200": { "description": "updated" }, "401": { "description": "invalid_credentials" } } }
    },
    "/users/me/avatar": {
      "put": { "summary": "Upload avatar image (multipart field avatar)", "security": [{"bearer": []}], "responses": { "200": { "description": "user" }, "413": { "description": "too large" }, "415": { "description": "unsupported type" } } }
    },
    "/users/{id}/avatar": {
      "get": { "summary": "Download avatar image", "parameters": [{ "name": "id", "in": "path", "required": true, "schema": { "type": "string" } }], "responses": { "200": { "description": "image" }, "404": { "description": "not found" } } }
    },
    "/admin/users/{id}/roles": {
      "put": { "summary": "Replace a user's roles (admin)", "security": [{"bearer": []}], "parameters": [{ "name": "id", "in": "path", "required": true, "schema": { "type": "string" } }], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"roles":{"type":"array","items":{"type":"string","enum":["tenant","landlord","admin"]}}}}}}}, "responses": { "200": { "description": "user" }, "403": { "description": "insufficient_role" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
