package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/quesbackend/ques-core/internal/apperr"
)

var validate = validator.New()

// decodeAndValidate decodes the request body into dst and runs struct-tag
// validation before any service method sees it.
func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.New(apperr.InvalidArgument, "malformed request body")
	}
	if err := validate.Struct(dst); err != nil {
		return apperr.New(apperr.InvalidArgument, err.Error())
	}
	return nil
}
