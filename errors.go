package social

import (
	"time"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredential = "invalid_credential"
	TextCodeUnverifiedEmail   = "unverified_email"
	TextCodeAlreadyRegistered = "already_registered"
	TextCodeUsernameTaken     = "username_taken"
	TextCodeRateLimited       = "profile_rate_limited"
	TextCodeAccountBanned     = "account_banned"
	TextCodeProviderFailure   = "provider_failure"
	TextCodeFollowSyncFailed  = "follow_sync_failed"
	TextCodeProfileNotFound   = "profile_not_found"
	TextCodeContentNotFound   = "content_not_found"
	TextCodeEmptyReason       = "empty_reason"
	TextCodeSelfFollow        = "self_follow"
	TextCodeEmptyPassword     = "empty_password"
	TextCodePasswordMismatch  = "password_mismatch"
	TextCodePasswordTooShort  = "password_too_short"
)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = errors.New("password cannot be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrPasswordTooShort is returned when a new password misses the minimum length.
var ErrPasswordTooShort = errors.New("password must be at least 8 characters", errors.CategoryValidation).
	WithTextCode(TextCodePasswordTooShort).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidCredential is returned when the identity provider rejects a credential pair.
var ErrInvalidCredential = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredential).
	WithCode(errors.CodeUnauthorized)

// ErrUnverifiedEmail is returned when a remote identity exists but its email is unconfirmed.
var ErrUnverifiedEmail = errors.New("email not verified", errors.CategoryAuth).
	WithTextCode(TextCodeUnverifiedEmail).
	WithCode(errors.CodeForbidden)

// ErrAlreadyRegistered is returned when registering a credential that already exists.
var ErrAlreadyRegistered = errors.New("account already registered", errors.CategoryConflict).
	WithTextCode(TextCodeAlreadyRegistered).
	WithCode(errors.CodeConflict)

// ErrUsernameTaken is returned when a username collides, compared case-insensitively.
var ErrUsernameTaken = errors.New("username already taken", errors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(errors.CodeConflict)

// ErrRateLimited is returned when a non-admin profile edit lands inside the cool-down window.
var ErrRateLimited = errors.New("profile was updated recently", errors.CategoryValidation).
	WithTextCode(TextCodeRateLimited).
	WithCode(errors.CodeBadRequest)

// ErrAccountBanned is returned when an operation is blocked by an active account ban.
// Metadata carries "reason" and, for temporary bans, "until".
var ErrAccountBanned = errors.New("account is banned", errors.CategoryAuth).
	WithTextCode(TextCodeAccountBanned).
	WithCode(errors.CodeForbidden)

// ErrProvider is returned for network or remote-provider failures.
var ErrProvider = errors.New("identity provider failure", errors.CategoryExternal).
	WithTextCode(TextCodeProviderFailure).
	WithCode(errors.CodeInternal)

// ErrFollowSyncFailed is returned when a follow toggle could not be mirrored remotely
// and the local edge was rolled back.
var ErrFollowSyncFailed = errors.New("follow change could not be synced", errors.CategoryExternal).
	WithTextCode(TextCodeFollowSyncFailed).
	WithCode(errors.CodeInternal)

// ErrProfileNotFound is returned when a profile lookup misses.
var ErrProfileNotFound = errors.New("profile not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProfileNotFound).
	WithCode(errors.CodeNotFound)

// ErrContentNotFound is returned when a content item lookup misses.
var ErrContentNotFound = errors.New("content not found", errors.CategoryNotFound).
	WithTextCode(TextCodeContentNotFound).
	WithCode(errors.CodeNotFound)

// ErrEmptyReason is returned when a moderation action is issued without a reason.
var ErrEmptyReason = errors.New("reason is required", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyReason).
	WithCode(errors.CodeBadRequest)

// ErrSelfFollow is returned when a profile attempts to follow itself.
var ErrSelfFollow = errors.New("cannot follow yourself", errors.CategoryValidation).
	WithTextCode(TextCodeSelfFollow).
	WithCode(errors.CodeBadRequest)

// BannedError decorates ErrAccountBanned with the ban's reason and expiry so
// callers can render a precise notice.
func BannedError(ban *BanRecord) *errors.Error {
	meta := map[string]any{}
	if ban != nil {
		meta["reason"] = ban.Reason
		if ban.BannedUntil != nil {
			meta["until"] = ban.BannedUntil.Format(time.RFC3339)
		}
	}
	return ErrAccountBanned.WithMetadata(meta)
}
