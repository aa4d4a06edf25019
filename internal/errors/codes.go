package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Environment errors
	CodeEnvironmentUnavailable Code = "ENVIRONMENT_UNAVAILABLE"

	// Claim errors
	CodeClaimUnknownOption   Code = "CLAIM_UNKNOWN_OPTION"
	CodeClaimDuplicate       Code = "CLAIM_DUPLICATE"
	CodeClaimParticipantBusy Code = "CLAIM_PARTICIPANT_BUSY"

	// Lifecycle errors
	CodeControlNotAuthorized Code = "CONTROL_NOT_AUTHORIZED"
	CodeInvalidForState      Code = "INVALID_FOR_STATE"

	// Option set errors
	CodeOptionSetUnknownPreset       Code = "OPTION_SET_UNKNOWN_PRESET"
	CodeOptionSetEmpty               Code = "OPTION_SET_EMPTY"
	CodeOptionSetDuplicateKey        Code = "OPTION_SET_DUPLICATE_KEY"
	CodeOptionSetUnknownKind         Code = "OPTION_SET_UNKNOWN_KIND"
	CodeOptionSetUnknownTag          Code = "OPTION_SET_UNKNOWN_TAG"
	CodeOptionSetDefinitionAmbiguous Code = "OPTION_SET_DEFINITION_AMBIGUOUS"

	// Storage errors
	CodeNotFound           Code = "NOT_FOUND"
	CodeSessionExists      Code = "SESSION_EXISTS"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
)
