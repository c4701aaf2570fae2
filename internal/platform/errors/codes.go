// Package errors provides structured error handling with machine-readable codes.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// General taxonomy
	CodeValidation            Code = "VALIDATION_ERROR"
	CodeBusinessRuleViolation Code = "BUSINESS_RULE_VIOLATION"
	CodeConcurrencyConflict   Code = "CONCURRENCY_CONFLICT"
	CodeNotFound              Code = "NOT_FOUND"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeIntegrationFailure    Code = "INTEGRATION_FAILURE"

	// Project errors
	CodeProjectAlreadyExists      Code = "PROJECT_ALREADY_EXISTS"
	CodeProjectNotCreated         Code = "PROJECT_NOT_CREATED"
	CodeProjectDeleted            Code = "PROJECT_DELETED"
	CodeProjectNameInvalid        Code = "PROJECT_NAME_INVALID"
	CodeProjectNameTaken          Code = "PROJECT_NAME_TAKEN"
	CodeProjectDescriptionTooLong Code = "PROJECT_DESCRIPTION_TOO_LONG"
	CodeProjectUpdateEmpty        Code = "PROJECT_UPDATE_EMPTY"
	CodeProjectUpdateFieldInvalid Code = "PROJECT_UPDATE_FIELD_INVALID"
	CodeProjectTemplateRequired   Code = "PROJECT_TEMPLATE_REQUIRED"
	CodeInvalidStatusTransition   Code = "INVALID_STATUS_TRANSITION"

	// Service errors
	CodeServiceNameInvalid         Code = "SERVICE_NAME_INVALID"
	CodeServiceNameTaken           Code = "SERVICE_NAME_TAKEN"
	CodeServiceTypeInvalid         Code = "SERVICE_TYPE_INVALID"
	CodeServiceStatusInvalid       Code = "SERVICE_STATUS_INVALID"
	CodeServiceIDRequired          Code = "SERVICE_ID_REQUIRED"
	CodeServiceUpdateEmpty         Code = "SERVICE_UPDATE_EMPTY"
	CodeServiceNotFound            Code = "SERVICE_NOT_FOUND"
	CodeServiceLimitExceeded       Code = "SERVICE_LIMIT_EXCEEDED"
	CodeServiceHasActiveDependents Code = "SERVICE_HAS_ACTIVE_DEPENDENTS"

	// Relationship errors
	CodeRelationshipIDRequired    Code = "RELATIONSHIP_ID_REQUIRED"
	CodeRelationshipExists        Code = "RELATIONSHIP_EXISTS"
	CodeRelationshipNotFound      Code = "RELATIONSHIP_NOT_FOUND"
	CodeRelationshipTypeInvalid   Code = "RELATIONSHIP_TYPE_INVALID"
	CodeRelationshipSelfReference Code = "RELATIONSHIP_SELF_REFERENCE"
	CodeFrontendOutboundInvalid   Code = "FRONTEND_OUTBOUND_INVALID"
	CodeCycleDetected             Code = "CYCLE_DETECTED"
	CodeDependencyDepthExceeded   Code = "DEPENDENCY_DEPTH_EXCEEDED"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation,
		CodeProjectNameInvalid,
		CodeProjectDescriptionTooLong,
		CodeProjectUpdateEmpty,
		CodeProjectUpdateFieldInvalid,
		CodeProjectTemplateRequired,
		CodeServiceNameInvalid,
		CodeServiceTypeInvalid,
		CodeServiceStatusInvalid,
		CodeServiceIDRequired,
		CodeServiceUpdateEmpty,
		CodeRelationshipIDRequired,
		CodeRelationshipTypeInvalid,
		CodeRelationshipSelfReference:
		return http.StatusBadRequest

	case CodeBusinessRuleViolation,
		CodeProjectAlreadyExists,
		CodeProjectDeleted,
		CodeProjectNameTaken,
		CodeInvalidStatusTransition,
		CodeServiceNameTaken,
		CodeServiceLimitExceeded,
		CodeServiceHasActiveDependents,
		CodeRelationshipExists,
		CodeFrontendOutboundInvalid,
		CodeCycleDetected,
		CodeDependencyDepthExceeded:
		return http.StatusUnprocessableEntity

	case CodeConcurrencyConflict:
		return http.StatusConflict

	case CodeNotFound,
		CodeProjectNotCreated,
		CodeServiceNotFound,
		CodeRelationshipNotFound:
		return http.StatusNotFound

	case CodeUnauthorized:
		return http.StatusUnauthorized

	case CodeIntegrationFailure:
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
