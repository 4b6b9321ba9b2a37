// Package docs registers the OpenAPI document served by the Swagger UI.
//
// Regenerate the full document from the handler annotations with:
//
//	swag init -g cmd/helloforever/main.go -o docs
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
        "/users": {"post": {"tags": ["Users"], "summary": "Create an account", "operationId": "register"}},
        "/me": {"get": {"tags": ["Users"], "summary": "Current profile", "operationId": "me"}},
        "/me/plan": {"put": {"tags": ["Users"], "summary": "Change plan", "operationId": "changePlan"}},
        "/trustee": {
            "get": {"tags": ["Users"], "summary": "Get the trustee", "operationId": "getTrustee"},
            "put": {"tags": ["Users"], "summary": "Name or replace the trustee", "operationId": "setTrustee"}
        },
        "/recipients": {
            "get": {"tags": ["Recipients"], "summary": "List recipients (paginated)", "operationId": "listRecipients"},
            "post": {"tags": ["Recipients"], "summary": "Add a recipient", "operationId": "createRecipient"}
        },
        "/recipients/{id}": {
            "get": {"tags": ["Recipients"], "summary": "Get a recipient", "operationId": "getRecipient"},
            "put": {"tags": ["Recipients"], "summary": "Replace a recipient", "operationId": "updateRecipient"},
            "delete": {"tags": ["Recipients"], "summary": "Delete a recipient and their messages", "operationId": "deleteRecipient"}
        },
        "/messages": {
            "get": {"tags": ["Messages"], "summary": "List messages (paginated)", "operationId": "listMessages"},
            "post": {"tags": ["Messages"], "summary": "Create a scheduled message", "operationId": "createMessage"}
        },
        "/messages/{id}": {
            "get": {"tags": ["Messages"], "summary": "Get a message", "operationId": "getMessage"},
            "put": {"tags": ["Messages"], "summary": "Replace a message", "operationId": "updateMessage"},
            "delete": {"tags": ["Messages"], "summary": "Delete a message", "operationId": "deleteMessage"}
        },
        "/view/{id}": {"get": {"tags": ["Messages"], "summary": "Open a delivered message", "operationId": "viewMessage"}},
        "/uploads": {"post": {"tags": ["Uploads"], "summary": "Issue a signed upload", "operationId": "createUpload"}},
        "/conversations": {"post": {"tags": ["Conversations"], "summary": "Start (or resume) a conversation", "operationId": "startConversation"}},
        "/conversations/chat": {"post": {"tags": ["Conversations"], "summary": "Send a chat turn", "operationId": "chat"}},
        "/conversations/{token}/messages": {"get": {"tags": ["Conversations"], "summary": "Conversation history (paginated)", "operationId": "chatHistory"}},
        "/internal/deliveries/sweep": {"post": {"tags": ["Internal"], "summary": "Deliver due messages", "operationId": "runSweep"}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "HelloForever API",
	Description:      "Schedule messages for the people you love, delivered on a date, a milestone, or after you are gone.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
