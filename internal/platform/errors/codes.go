// Package errors provides structured domain errors with localized messages.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

// Class groups codes by how callers recover from them.
type Class string

const (
	ClassUnknown    Class = "unknown"
	ClassValidation Class = "validation"
	ClassLifecycle  Class = "lifecycle"
	ClassAuth       Class = "auth"
	ClassRemote     Class = "remote"
	ClassNotFound   Class = "not_found"
)

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Score validation
	CodeScoreOutOfRange       Code = "SCORE_OUT_OF_RANGE"
	CodeScoreNotInteger       Code = "SCORE_NOT_INTEGER"
	CodeScoreUnknownCriterion Code = "SCORE_UNKNOWN_CRITERION"
	CodeScoreIncomplete       Code = "SCORE_INCOMPLETE"

	// Entity validation
	CodeProjectTitleRequired   Code = "PROJECT_TITLE_REQUIRED"
	CodeEvaluatorNameRequired  Code = "EVALUATOR_NAME_REQUIRED"
	CodeEvaluatorEmailRequired Code = "EVALUATOR_EMAIL_REQUIRED"
	CodePanelEvaluatorCount    Code = "PANEL_EVALUATOR_COUNT"
	CodePanelProjectsRequired  Code = "PANEL_PROJECTS_REQUIRED"
	CodeImportInvalid          Code = "IMPORT_INVALID"
	CodeFinalizeNotConfirmed   Code = "FINALIZE_NOT_CONFIRMED"
	CodeInvalidRequest         Code = "INVALID_REQUEST"

	// Lifecycle
	CodeEvaluatorFinalized Code = "EVALUATOR_FINALIZED"
	CodeAssignmentMissing  Code = "ASSIGNMENT_MISSING"
	CodeNothingToFinalize  Code = "NOTHING_TO_FINALIZE"
	CodeDraftsPending      Code = "DRAFTS_PENDING"

	// Auth
	CodeAuthInvalidCredentials Code = "AUTH_INVALID_CREDENTIALS"
	CodeAuthTokenMissing       Code = "AUTH_TOKEN_MISSING"
	CodeAuthTokenInvalid       Code = "AUTH_TOKEN_INVALID"

	// Remote boundary
	CodeRemoteNotConfigured Code = "REMOTE_NOT_CONFIGURED"
	CodeRemoteUnavailable   Code = "REMOTE_UNAVAILABLE"
	CodeRemoteRejected      Code = "REMOTE_REJECTED"

	// Storage
	CodeNotFound Code = "NOT_FOUND"
)

// Class maps a code to its recovery class.
func (c Code) Class() Class {
	switch c {
	case CodeScoreOutOfRange,
		CodeScoreNotInteger,
		CodeScoreUnknownCriterion,
		CodeScoreIncomplete,
		CodeProjectTitleRequired,
		CodeEvaluatorNameRequired,
		CodeEvaluatorEmailRequired,
		CodePanelEvaluatorCount,
		CodePanelProjectsRequired,
		CodeImportInvalid,
		CodeFinalizeNotConfirmed,
		CodeInvalidRequest:
		return ClassValidation

	case CodeEvaluatorFinalized,
		CodeAssignmentMissing,
		CodeNothingToFinalize,
		CodeDraftsPending:
		return ClassLifecycle

	case CodeAuthInvalidCredentials,
		CodeAuthTokenMissing,
		CodeAuthTokenInvalid:
		return ClassAuth

	case CodeRemoteNotConfigured,
		CodeRemoteUnavailable,
		CodeRemoteRejected:
		return ClassRemote

	case CodeNotFound:
		return ClassNotFound

	default:
		return ClassUnknown
	}
}

// HTTPStatus maps a code to the status used by the JSON APIs.
func (c Code) HTTPStatus() int {
	switch c.Class() {
	case ClassValidation:
		return http.StatusBadRequest
	case ClassLifecycle:
		return http.StatusConflict
	case ClassAuth:
		return http.StatusUnauthorized
	case ClassRemote:
		return http.StatusBadGateway
	case ClassNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
