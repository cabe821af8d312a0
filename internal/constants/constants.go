package constants

const (
	// Transport-agnostic error codes shared by REST handlers and clients
	ErrCodeAuthFailed        = "AUTH_FAILED"
	ErrCodeAuthExpired       = "AUTH_EXPIRED"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeAttachmentInvalid = "ATTACHMENT_INVALID"

	// Messaging domain errors
	ErrCodeMessageTooLong    = "MESSAGE_TOO_LONG"
	ErrCodeEmptyMessage      = "EMPTY_MESSAGE"
	ErrCodeTranslationFailed = "TRANSLATION_FAILED"
	ErrCodeRelayFailed       = "RELAY_FAILED"
)

const (
	// IDRandomBytes is the random payload of generated prefix_hex ids.
	IDRandomBytes = 12

	// MessageHistoryMaxLimit caps the list-messages page size.
	MessageHistoryMaxLimit = 200

	// MessageBodyMaxChars caps a sanitized message body.
	MessageBodyMaxChars = 4000

	// MaxAttachmentsPerMessage caps the attachment list on a single message.
	MaxAttachmentsPerMessage = 10

	// MaxEmojiLength bounds a reaction emoji payload. Generous because
	// sequences with modifiers and ZWJs are multi-rune.
	MaxEmojiLength = 32
)
