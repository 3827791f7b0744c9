package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Substitution API",
        "description": "Absence-driven substitution coverage: affected items, candidate ranking and assignment.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Absences", "description": "Absence reporting and affected items"},
        {"name": "Coverage", "description": "Candidate ranking and substitution assignment"},
        {"name": "Plan", "description": "Daily substitution plan export"}
    ],
    "paths": {
        "/absences": {
            "get": {
                "tags": ["Absences"],
                "summary": "List absences",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "format": "date"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Absences"],
                "summary": "Report a teacher absence",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportAbsenceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences/{id}": {
            "get": {
                "tags": ["Absences"],
                "summary": "Get an absence",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Absences"],
                "summary": "Delete an absence and its substitutions",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/absences/{id}/confirm": {
            "post": {
                "tags": ["Absences"],
                "summary": "Confirm a reported absence",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Absence is not in REPORTED state", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences/{id}/affected": {
            "get": {
                "tags": ["Absences"],
                "summary": "Resolve the lessons and duties invalidated by an absence",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences/{id}/lessons/{lessonId}/candidates": {
            "get": {
                "tags": ["Coverage"],
                "summary": "Rank substitutes for an affected lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "lessonId", "in": "path", "required": true, "type": "string"},
                    {"name": "sort", "in": "query", "type": "string", "enum": ["score", "workload", "qualified", "reserve", "name"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/SubstituteCandidate"}}}
                }
            }
        },
        "/lessons/{lessonId}/candidates": {
            "get": {
                "tags": ["Coverage"],
                "summary": "Rank substitutes for a lesson on a date",
                "parameters": [
                    {"name": "lessonId", "in": "path", "required": true, "type": "string"},
                    {"name": "absentTeacherId", "in": "query", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "sort", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/SubstituteCandidate"}}}
                }
            }
        },
        "/absences/{id}/duties/{dutyId}/candidates": {
            "get": {
                "tags": ["Coverage"],
                "summary": "Rank substitutes for an affected supervision duty",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "dutyId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/SupervisionCandidate"}}}
                }
            }
        },
        "/duties/{dutyId}/candidates": {
            "get": {
                "tags": ["Coverage"],
                "summary": "Rank substitutes for a supervision duty",
                "parameters": [
                    {"name": "dutyId", "in": "path", "required": true, "type": "string"},
                    {"name": "absentTeacherId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/SupervisionCandidate"}}}
                }
            }
        },
        "/absences/{id}/substitutions": {
            "get": {
                "tags": ["Coverage"],
                "summary": "List the substitutions recorded for an absence",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Coverage"],
                "summary": "Cover an affected lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignSubstituteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Substitution"}},
                    "409": {"description": "Already assigned, reassign by deleting first", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences/{id}/supervision-substitutions": {
            "post": {
                "tags": ["Coverage"],
                "summary": "Cover an affected break supervision duty",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignSupervisionSubstituteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already assigned", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences/{id}/auto-assign": {
            "post": {
                "tags": ["Coverage"],
                "summary": "Greedily assign the best candidate to every uncovered lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/AutoAssignRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AutoAssignResult"}},
                    "409": {"description": "A run is already in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/substitutions/{id}": {
            "delete": {
                "tags": ["Coverage"],
                "summary": "Remove a lesson substitution",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/supervision-substitutions/{id}": {
            "delete": {
                "tags": ["Coverage"],
                "summary": "Remove a supervision substitution",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/substitution-plan": {
            "get": {
                "tags": ["Plan"],
                "summary": "Export the daily substitution plan",
                "produces": ["application/json", "text/csv", "application/pdf"],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "format": "date"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["json", "csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "ReportAbsenceRequest": {
            "type": "object",
            "required": ["teacherId", "date", "type"],
            "properties": {
                "teacherId": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "startTime": {"type": "string", "example": "10:00"},
                "endTime": {"type": "string", "example": "11:00"},
                "type": {"type": "string", "enum": ["SICK", "PERSONAL", "PROFESSIONAL", "MEETING", "EMERGENCY", "VACATION", "ADMINISTRATIVE_DUTY", "OTHER"]},
                "notes": {"type": "string"}
            }
        },
        "AssignSubstituteRequest": {
            "type": "object",
            "required": ["scheduledLessonId", "coverageType"],
            "properties": {
                "scheduledLessonId": {"type": "string"},
                "substituteTeacherId": {"type": "string"},
                "coverageType": {"type": "string", "enum": ["TEACHER_SUBSTITUTE", "CLASS_MERGER", "SELF_STUDY", "CANCELLED", "ROOM_CHANGE", "RESCHEDULED"]},
                "notes": {"type": "string"}
            }
        },
        "AssignSupervisionSubstituteRequest": {
            "type": "object",
            "required": ["dutyId", "coverageType"],
            "properties": {
                "dutyId": {"type": "string"},
                "substituteTeacherId": {"type": "string"},
                "coverageType": {"type": "string", "enum": ["TEACHER_SUBSTITUTE", "CANCELLED", "COMBINED_AREA"]},
                "notes": {"type": "string"}
            }
        },
        "AutoAssignRequest": {
            "type": "object",
            "properties": {
                "minimumScore": {"type": "integer"}
            }
        },
        "SubstituteCandidate": {
            "type": "object",
            "properties": {
                "teacher_id": {"type": "string"},
                "full_name": {"type": "string"},
                "score": {"type": "integer"},
                "is_qualified": {"type": "boolean"},
                "is_busy": {"type": "boolean"},
                "substitutions_this_week": {"type": "integer"},
                "is_same_department": {"type": "boolean"},
                "is_on_substitution_reserve": {"type": "boolean"},
                "availability_importance": {"type": "integer"},
                "availability_adjustment": {"type": "integer"},
                "availability_reason": {"type": "string"},
                "match_reasons": {"type": "array", "items": {"type": "string"}}
            }
        },
        "SupervisionCandidate": {
            "type": "object",
            "properties": {
                "teacher_id": {"type": "string"},
                "full_name": {"type": "string"},
                "score": {"type": "integer"},
                "has_lesson_this_period": {"type": "boolean"},
                "has_supervision_this_period": {"type": "boolean"},
                "supervisions_this_week": {"type": "integer"},
                "is_same_department": {"type": "boolean"},
                "match_reasons": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Substitution": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "absence_id": {"type": "string"},
                "scheduled_lesson_id": {"type": "string"},
                "substitute_teacher_id": {"type": "string"},
                "coverage_type": {"type": "string"},
                "assigned_at": {"type": "string"},
                "assigned_by": {"type": "string"},
                "email_sent": {"type": "boolean"},
                "hours_worked": {"type": "number"},
                "pay_rate": {"type": "number"},
                "computed_pay": {"type": "number"}
            }
        },
        "AutoAssignResult": {
            "type": "object",
            "properties": {
                "absence_id": {"type": "string"},
                "minimum_score": {"type": "integer"},
                "assigned_count": {"type": "integer"},
                "failed_count": {"type": "integer"},
                "already_assigned": {"type": "integer"},
                "assignments": {"type": "array", "items": {"$ref": "#/definitions/Substitution"}},
                "status": {"type": "string"}
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
