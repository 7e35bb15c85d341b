package common

// AuthorizationHeaderName is the HTTP header carrying the access token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token inside the Authorization header.
const BearerPrefix = "Bearer "
