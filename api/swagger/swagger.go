package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Hostel Leave API",
        "description": "Role-based hostel leave request and out-pass service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Identity verification and sessions"},
        {"name": "Leave", "description": "Leave request lifecycle"},
        {"name": "Roster", "description": "Live hostel roster"},
        {"name": "AllowList", "description": "Allow-list administration"},
        {"name": "Reports", "description": "Leave-register exports"}
    ],
    "paths": {
        "/auth/verify": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Verify identity assertion",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid token"},
                    "403": {"description": "Not allow-listed"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Admin password login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PasswordLoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests": {
            "post": {
                "tags": ["Leave"],
                "summary": "Submit a leave request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitLeaveRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/my": {
            "get": {
                "tags": ["Leave"],
                "summary": "List own requests, newest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/pending": {
            "get": {
                "tags": ["Leave"],
                "summary": "List pending requests, oldest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/approve": {
            "post": {
                "tags": ["Leave"],
                "summary": "Approve a pending request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApproveLeaveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already finalized"}
                }
            }
        },
        "/requests/{id}/reject": {
            "post": {
                "tags": ["Leave"],
                "summary": "Reject a pending request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectLeaveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already finalized"}
                }
            }
        },
        "/requests/{id}/slip": {
            "get": {
                "tags": ["Leave"],
                "summary": "Get slip data",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not approved yet"}
                }
            }
        },
        "/requests/{id}/slip.pdf": {
            "get": {
                "tags": ["Leave"],
                "summary": "Download slip as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF out-pass"}
                }
            }
        },
        "/students/status": {
            "get": {
                "tags": ["Roster"],
                "summary": "Hostel roster for a day",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["all", "on_leave"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/allowlist": {
            "get": {
                "tags": ["AllowList"],
                "summary": "List allow-list entries",
                "parameters": [
                    {"name": "role", "in": "query", "type": "string", "enum": ["student", "staff", "admin"]},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["AllowList"],
                "summary": "Add an allow-list entry",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddAllowListEntryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate email"}
                }
            }
        },
        "/allowlist/{id}": {
            "delete": {
                "tags": ["AllowList"],
                "summary": "Remove an allow-list entry",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/allowlist/import": {
            "post": {
                "tags": ["AllowList"],
                "summary": "Bulk import allow-list entries",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a leave-register export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished export",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Export file"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "VerifyRequest": {
            "type": "object",
            "properties": {
                "id_token": {"type": "string"}
            },
            "required": ["id_token"]
        },
        "PasswordLoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "SubmitLeaveRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"},
                "place_of_visit": {"type": "string"},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"}
            },
            "required": ["reason", "place_of_visit", "start_date", "end_date"]
        },
        "ApproveLeaveRequest": {
            "type": "object",
            "properties": {
                "approved_by": {"type": "string"}
            },
            "required": ["approved_by"]
        },
        "RejectLeaveRequest": {
            "type": "object",
            "properties": {
                "rejection_reason": {"type": "string"}
            },
            "required": ["rejection_reason"]
        },
        "AddAllowListEntryRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string", "enum": ["student", "staff", "admin"]},
                "password": {"type": "string"},
                "roll_no": {"type": "string"},
                "department": {"type": "string"},
                "year": {"type": "string"},
                "hostel_name": {"type": "string"},
                "room_no": {"type": "string"},
                "parent_mobile": {"type": "string"}
            },
            "required": ["email", "full_name", "role"]
        },
        "CreateReportRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "date_from": {"type": "string"},
                "date_to": {"type": "string"}
            },
            "required": ["format", "date_from", "date_to"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
