package rtsp

// StatusCode is a response status code.
type StatusCode int

// Status codes used by the receiver's handlers.
const (
	StatusContinue              StatusCode = 100
	StatusSwitchingProtocols    StatusCode = 101
	StatusOK                    StatusCode = 200
	StatusBadRequest            StatusCode = 400
	StatusUnauthorized          StatusCode = 401
	StatusForbidden             StatusCode = 403
	StatusNotFound              StatusCode = 404
	StatusMethodNotAllowed      StatusCode = 405
	StatusNotAcceptable         StatusCode = 406
	StatusSessionNotFound       StatusCode = 454
	StatusMethodNotValidInState StatusCode = 455
	StatusUnsupportedTransport  StatusCode = 461
	StatusInternalServerError   StatusCode = 500
	StatusNotImplemented        StatusCode = 501
	StatusServiceUnavailable    StatusCode = 503
	StatusVersionNotSupported   StatusCode = 505
	StatusOptionNotSupported    StatusCode = 551
)

var reasonPhrases = map[StatusCode]string{
	StatusContinue:              "Continue",
	StatusSwitchingProtocols:    "Switching Protocols",
	StatusOK:                    "OK",
	StatusBadRequest:            "Bad Request",
	StatusUnauthorized:          "Unauthorized",
	StatusForbidden:             "Forbidden",
	StatusNotFound:              "Not Found",
	StatusMethodNotAllowed:      "Method Not Allowed",
	StatusNotAcceptable:         "Not Acceptable",
	StatusSessionNotFound:       "Session Not Found",
	StatusMethodNotValidInState: "Method Not Valid in This State",
	StatusUnsupportedTransport:  "Unsupported Transport",
	StatusInternalServerError:   "Internal Server Error",
	StatusNotImplemented:        "Not Implemented",
	StatusServiceUnavailable:    "Service Unavailable",
	StatusVersionNotSupported:   "Version Not Supported",
	StatusOptionNotSupported:    "Option Not Supported",
}

// Reason returns the reason phrase, or "Unknown" for unlisted codes.
func (c StatusCode) Reason() string {
	if r, ok := reasonPhrases[c]; ok {
		return r
	}
	return "Unknown"
}
