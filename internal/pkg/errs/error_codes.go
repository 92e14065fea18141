/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients, over HTTP
and over the realtime connection.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates failure to parse multipart form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Chat and Content Errors
const (
	// ErrMessageEmpty indicates the message text was empty after trimming and sanitization.
	ErrMessageEmpty = 2201

	// ErrMessageContentTooLong indicates that the message exceeded the maximum length.
	ErrMessageContentTooLong = 2202

	// ErrMessageNotFound indicates the message does not exist or was already deleted.
	ErrMessageNotFound = 2203

	// ErrInvalidEvent indicates a malformed or unsupported realtime event.
	ErrInvalidEvent = 2301
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrUnauthenticated indicates a missing, malformed, or expired credential.
	ErrUnauthenticated = 3001

	// ErrForbidden indicates the caller is not allowed to perform the operation.
	ErrForbidden = 3002

	// ErrAccountBlocked indicates the account was blocked by an administrator.
	ErrAccountBlocked = 3003

	// ErrInvalidUsername indicates the username does not satisfy the format rules.
	ErrInvalidUsername = 3004

	// ErrInvalidPassword indicates the password does not satisfy the length rules.
	ErrInvalidPassword = 3005

	// ErrUserAlreadyExists indicates the username is already registered.
	ErrUserAlreadyExists = 3006

	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = 3007

	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = 3008

	// ErrAdminRequired indicates the route needs an administrator.
	ErrAdminRequired = 3009

	// ErrCannotBlockAdmin indicates an attempt to block an administrator account.
	ErrCannotBlockAdmin = 3010
)

// 4xxx: External Collaborator Errors
const (
	// ErrTranslationFailed indicates the translation provider refused or failed the request.
	ErrTranslationFailed = 4001

	// ErrFileStorageFailed indicates the object storage operation failed.
	ErrFileStorageFailed = 4002

	// ErrInvalidFile indicates an uploaded file of the wrong type or size.
	ErrInvalidFile = 4003

	// ErrStorageDisabled indicates object storage is not configured.
	ErrStorageDisabled = 4004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrPersistence indicates the message or account store is unavailable.
	ErrPersistence = 5001
)
