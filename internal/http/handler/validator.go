package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/veridianhq/hr-api/internal/http/response"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeAndValidate parses the JSON body into dst and runs struct
// validation. On failure it writes the 4xx response itself and returns
// false so handlers can bail with a bare return.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		response.Error(w, r, http.StatusBadRequest, response.CodeValidationError, "malformed request body", nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[strings.ToLower(fe.Field())] = fe.Tag()
			}
			response.Error(w, r, http.StatusUnprocessableEntity, response.CodeValidationError, "request validation failed", details)
			return false
		}
		response.Error(w, r, http.StatusUnprocessableEntity, response.CodeValidationError, "request validation failed", nil)
		return false
	}
	return true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
