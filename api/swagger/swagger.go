package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "DataTouch Booking API",
        "description": "Availability and booking scheduling engine for DataTouch cards",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "PublicBooking", "description": "Unauthenticated booking endpoints for card visitors"},
        {"name": "Appointments", "description": "CRM appointment lifecycle"},
        {"name": "Availability", "description": "CRM weekly rules, exceptions and settings"}
    ],
    "paths": {
        "/public/cards/{cardId}/services": {
            "get": {
                "tags": ["PublicBooking"],
                "summary": "List bookable services for a card",
                "parameters": [
                    {"name": "cardId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Card not found"}
                }
            }
        },
        "/public/cards/{cardId}/days": {
            "get": {
                "tags": ["PublicBooking"],
                "summary": "Mark which dates in a range have any availability",
                "parameters": [
                    {"name": "cardId", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid range"}
                }
            }
        },
        "/public/cards/{cardId}/slots": {
            "get": {
                "tags": ["PublicBooking"],
                "summary": "List available slots for a date",
                "parameters": [
                    {"name": "cardId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "service_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid date"}
                }
            }
        },
        "/public/cards/{cardId}/appointments": {
            "post": {
                "tags": ["PublicBooking"],
                "summary": "Book an appointment",
                "parameters": [
                    {"name": "cardId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot no longer available"}
                }
            }
        },
        "/cards/{cardId}/appointments": {
            "get": {
                "tags": ["Appointments"],
                "summary": "List a card's appointments",
                "parameters": [
                    {"name": "cardId", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Appointments"],
                "summary": "Create an appointment manually",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Slot no longer available"}
                }
            }
        },
        "/cards/{cardId}/appointments/export": {
            "get": {
                "tags": ["Appointments"],
                "summary": "Export appointments as CSV or PDF",
                "parameters": [
                    {"name": "cardId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "produces": ["text/csv", "application/pdf"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/cards/{cardId}/appointments/{id}": {
            "get": {
                "tags": ["Appointments"],
                "summary": "Get a single appointment",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/cards/{cardId}/appointments/{id}/status": {
            "patch": {
                "tags": ["Appointments"],
                "summary": "Advance an appointment's lifecycle status",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/cards/{cardId}/appointments/{id}/reschedule": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Move an appointment to a new time",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "New time conflicts with another appointment"}
                }
            }
        },
        "/cards/{cardId}/appointments/{id}/cancel": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Cancel an appointment",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Already cancelled"}
                }
            }
        },
        "/cards/{cardId}/appointments/{id}/restore": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Restore a cancelled appointment",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Original time no longer free"}
                }
            }
        },
        "/cards/{cardId}/availability/rules": {
            "get": {
                "tags": ["Availability"],
                "summary": "Get the weekly schedule",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Replace the weekly schedule",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/cards/{cardId}/availability/exceptions": {
            "get": {
                "tags": ["Availability"],
                "summary": "List date exceptions in a range",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Availability"],
                "summary": "Add a date exception",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/cards/{cardId}/booking-settings": {
            "get": {
                "tags": ["Availability"],
                "summary": "Get booking settings",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Update booking settings",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
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
