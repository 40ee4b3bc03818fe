//go:build swagger

package httpapi

import "github.com/swaggo/swag"

// apiDoc is the OpenAPI document served at /docs/doc.json.
const apiDoc = `{
  "swagger": "2.0",
  "info": {
    "title": "{{.Title}}",
    "description": "{{escape .Description}}",
    "version": "{{.Version}}"
  },
  "basePath": "{{.BasePath}}",
  "schemes": {{ marshal .Schemes }},
  "paths": {
    "/health": {
      "get": {
        "tags": ["meta"],
        "summary": "Engine health",
        "produces": ["application/json"],
        "responses": {
          "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}},
          "503": {"description": "Model not loaded", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
        }
      }
    },
    "/models": {
      "get": {
        "tags": ["models"],
        "summary": "List models",
        "produces": ["application/json"],
        "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}}
      }
    },
    "/v1/chat/completions": {
      "post": {
        "tags": ["chat"],
        "summary": "Create a chat completion",
        "consumes": ["application/json"],
        "produces": ["application/json"],
        "parameters": [
          {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.ChatRequest"}}
        ],
        "responses": {
          "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ChatResponse"}},
          "422": {"description": "Invalid request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
          "500": {"description": "Generation failed", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
          "503": {"description": "Model not loaded", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
        }
      }
    }
  },
  "definitions": {
    "types.ChatMessage": {
      "type": "object",
      "required": ["role", "content"],
      "properties": {
        "role": {"type": "string", "enum": ["user", "assistant", "system"], "example": "user"},
        "content": {"type": "string", "example": "Hello"}
      }
    },
    "types.ChatRequest": {
      "type": "object",
      "required": ["messages"],
      "properties": {
        "model": {"type": "string"},
        "messages": {"type": "array", "items": {"$ref": "#/definitions/types.ChatMessage"}},
        "max_tokens": {"type": "integer", "example": 128},
        "temperature": {"type": "number", "example": 0.7},
        "top_p": {"type": "number", "example": 0.9}
      }
    },
    "types.ChatChoice": {
      "type": "object",
      "properties": {
        "index": {"type": "integer"},
        "message": {"$ref": "#/definitions/types.ChatMessage"},
        "finish_reason": {"type": "string", "example": "stop"}
      }
    },
    "types.Usage": {
      "type": "object",
      "properties": {
        "prompt_tokens": {"type": "integer"},
        "completion_tokens": {"type": "integer"},
        "total_tokens": {"type": "integer"}
      }
    },
    "types.ChatResponse": {
      "type": "object",
      "properties": {
        "id": {"type": "string"},
        "object": {"type": "string", "example": "chat.completion"},
        "created": {"type": "integer"},
        "model": {"type": "string"},
        "choices": {"type": "array", "items": {"$ref": "#/definitions/types.ChatChoice"}},
        "usage": {"$ref": "#/definitions/types.Usage"}
      }
    },
    "types.HealthResponse": {
      "type": "object",
      "properties": {
        "status": {"type": "string", "example": "healthy"},
        "model": {"type": "string"},
        "gpu_memory_used": {"type": "string", "example": "CUDA enabled"}
      }
    },
    "types.ModelCard": {
      "type": "object",
      "properties": {
        "id": {"type": "string"},
        "object": {"type": "string", "example": "model"},
        "created": {"type": "integer", "example": 1677610602},
        "owned_by": {"type": "string", "example": "vllm-poc"}
      }
    },
    "types.ModelsResponse": {
      "type": "object",
      "properties": {
        "object": {"type": "string", "example": "list"},
        "data": {"type": "array", "items": {"$ref": "#/definitions/types.ModelCard"}}
      }
    },
    "types.ErrorResponse": {
      "type": "object",
      "properties": {"detail": {"type": "string", "example": "Model not loaded"}}
    }
  }
}`

// SwaggerInfo holds the document metadata; MountSwagger sets the version.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "vllmpoc API",
	Description:      "OpenAI-compatible chat completions in front of a vLLM engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  apiDoc,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
