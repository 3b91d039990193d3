package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tahfidz Exam API",
        "description": "Oral juz exam slot scheduling for tahfidz classes",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Slots", "description": "Nearest open slot search"},
        {"name": "Bookings", "description": "Exam slot bookings"},
        {"name": "Problems", "description": "Scheduling problem detection"},
        {"name": "Classes", "description": "Class (halaqa) management"},
        {"name": "Students", "description": "Student roster"},
        {"name": "Examiners", "description": "Examiner roster and availability"}
    ],
    "paths": {
        "/slots/nearest": {
            "get": {
                "tags": ["Slots"],
                "summary": "Find the nearest open exam slots for a class",
                "parameters": [
                    {"name": "classId", "in": "query", "type": "string", "required": true},
                    {"name": "examKind", "in": "query", "type": "string", "enum": ["non-5juz", "5juz"], "required": true},
                    {"name": "juzPortion", "in": "query", "type": "string", "enum": ["full", "half"]},
                    {"name": "examinerId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Class or examiner unknown"}
                }
            }
        },
        "/bookings": {
            "get": {
                "tags": ["Bookings"],
                "summary": "List bookings",
                "parameters": [
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "examinerId", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Bookings"],
                "summary": "Book a single exam slot",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBookingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot capacity exhausted"}
                }
            }
        },
        "/bookings/multi-part": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Book a 5-juz exam across five slots atomically",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateMultiPartBookingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "One or more slots unavailable; nothing was booked"}
                }
            }
        },
        "/bookings/{id}": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Get booking detail",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Bookings"],
                "summary": "Cancel a booking (multi-part cancels the whole group)",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/bookings/{id}/complete": {
            "patch": {
                "tags": ["Bookings"],
                "summary": "Record the score of a finished exam",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CompleteBookingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/problems": {
            "get": {
                "tags": ["Problems"],
                "summary": "List detected scheduling problems",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/problems/scan": {
            "post": {
                "tags": ["Problems"],
                "summary": "Run a problem scan over a date window",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/problems/export": {
            "get": {
                "tags": ["Problems"],
                "summary": "Download the problem report as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "required": true},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Report file"}
                }
            }
        },
        "/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List classes",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Create class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveClassRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/classes/{id}": {
            "get": {
                "tags": ["Classes"],
                "summary": "Get class detail",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "put": {
                "tags": ["Classes"],
                "summary": "Update class",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveClassRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Classes"],
                "summary": "Delete class and everything scheduled under it",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/classes/{id}/students": {
            "get": {
                "tags": ["Classes"],
                "summary": "List the students of a class",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student detail",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update student",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete student and their bookings",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/examiners": {
            "get": {
                "tags": ["Examiners"],
                "summary": "List examiners",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Examiners"],
                "summary": "Create examiner",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveExaminerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/examiners/{id}": {
            "get": {
                "tags": ["Examiners"],
                "summary": "Get examiner detail",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "put": {
                "tags": ["Examiners"],
                "summary": "Update examiner",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveExaminerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Examiners"],
                "summary": "Delete examiner, detaching their bookings",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        }
    },
    "definitions": {
        "SlotSelection": {
            "type": "object",
            "required": ["date_key", "period"],
            "properties": {
                "date_key": {"type": "string", "example": "2026-09-02"},
                "period": {"type": "string", "example": "Jam ke-2"}
            }
        },
        "CreateBookingRequest": {
            "type": "object",
            "required": ["class_id", "student_id", "juz_label", "juz_portion", "slot"],
            "properties": {
                "class_id": {"type": "string"},
                "student_id": {"type": "string"},
                "juz_label": {"type": "string", "example": "Juz 30"},
                "juz_portion": {"type": "string", "enum": ["full", "half"]},
                "examiner_id": {"type": "string"},
                "slot": {"$ref": "#/definitions/SlotSelection"}
            }
        },
        "CreateMultiPartBookingRequest": {
            "type": "object",
            "required": ["class_id", "student_id", "juz_labels", "slots"],
            "properties": {
                "class_id": {"type": "string"},
                "student_id": {"type": "string"},
                "juz_labels": {"type": "array", "items": {"type": "string"}},
                "examiner_id": {"type": "string"},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/SlotSelection"}}
            }
        },
        "CompleteBookingRequest": {
            "type": "object",
            "required": ["score"],
            "properties": {
                "score": {"type": "integer", "minimum": 0, "maximum": 100}
            }
        },
        "SaveClassRequest": {
            "type": "object",
            "required": ["name", "schedule"],
            "properties": {
                "name": {"type": "string"},
                "schedule": {
                    "type": "object",
                    "additionalProperties": {"type": "array", "items": {"type": "string"}}
                }
            }
        },
        "SaveStudentRequest": {
            "type": "object",
            "required": ["class_id", "name"],
            "properties": {
                "class_id": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "SaveExaminerRequest": {
            "type": "object",
            "required": ["name", "schedule"],
            "properties": {
                "name": {"type": "string"},
                "schedule": {
                    "type": "object",
                    "additionalProperties": {"type": "array", "items": {"type": "string"}}
                },
                "supported_portions": {"type": "array", "items": {"type": "string"}},
                "max_exams_per_day": {"type": "integer"}
            }
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
