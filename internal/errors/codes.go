package errors

// Error code constants returned in the JSON error payload.
// Format: CATEGORY_SPECIFIC_DETAIL; clients map these to display messages.

const (
	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidID = "VALIDATION_INVALID_ID" // malformed video ID

	// ==================== Video (VIDEO_) ====================
	VideoNotFound = "VIDEO_NOT_FOUND" // unknown on YouTube or not tracked

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // unexpected failure
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // storage failure
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // YouTube API failure
)
