package server

import (
	"net/http"

	apperrors "github.com/marklens/marklens/internal/errors"
)

// HandleError is the central responder for all handler errors.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}
