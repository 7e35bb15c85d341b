package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

type errorBody struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

type detailBody struct {
	Detail string `json:"detail"`
}

type tokenPairBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, statusCode int, detail string) {
	writeJSON(w, statusCode, detailBody{Detail: detail})
}

// Messages never include the offending token or password.
var messages = map[string]string{
	common.KindInvalidCredentials: "invalid email or password",
	common.KindValidationFailed:   "invalid request",
	common.KindTokenMalformed:     "token is malformed",
	common.KindTokenExpired:       "token has expired",
	common.KindTokenRevoked:       "token has been revoked",
	common.KindTokenInvalid:       "token is invalid",
	common.KindUserNotFound:       "user not found",
	common.KindInternal:           "internal server error",
}

var defaultStatus = map[string]int{
	common.KindInvalidCredentials: http.StatusBadRequest,
	common.KindValidationFailed:   http.StatusBadRequest,
	common.KindTokenMalformed:     http.StatusUnauthorized,
	common.KindTokenExpired:       http.StatusUnauthorized,
	common.KindTokenRevoked:       http.StatusUnauthorized,
	common.KindTokenInvalid:       http.StatusUnauthorized,
	common.KindUserNotFound:       http.StatusNotFound,
	common.KindInternal:           http.StatusInternalServerError,
}

// tokenErrorsAreBadRequest is used by endpoints that take a token as input
// rather than as a credential.
var tokenErrorsAreBadRequest = map[string]int{
	common.KindTokenMalformed: http.StatusBadRequest,
	common.KindTokenExpired:   http.StatusBadRequest,
	common.KindTokenRevoked:   http.StatusBadRequest,
	common.KindTokenInvalid:   http.StatusBadRequest,
	common.KindUserNotFound:   http.StatusBadRequest,
}

// credentialErrorsAreUnauthorized is used when the token authenticates the request.
var credentialErrorsAreUnauthorized = map[string]int{
	common.KindUserNotFound: http.StatusUnauthorized,
}

func statusFor(kind string, overrides map[string]int) int {
	if s, ok := overrides[kind]; ok {
		return s
	}
	if s, ok := defaultStatus[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func errorBodyFor(err error) errorBody {
	kind := common.Kind(err)
	body := errorBody{Error: messages[kind], Kind: kind}

	var ve *common.ValidationError
	if errors.As(err, &ve) {
		body.Fields = ve.Fields
	}
	return body
}
