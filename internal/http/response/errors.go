package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/apierr"
)

// ToAPIError maps an engine error onto an HTTP status and code.
func ToAPIError(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	var ve *progression.VerificationError
	if errors.As(err, &ve) {
		return apierr.Unprocessable("verification_failed", errors.New(ve.Reason))
	}
	switch {
	case errors.Is(err, progression.ErrNotFound):
		return apierr.NotFound("not_found", err)
	case errors.Is(err, progression.ErrInvalidArgument):
		return apierr.BadRequest("invalid_argument", err)
	case errors.Is(err, progression.ErrConflict):
		return apierr.Conflict("conflict", err)
	case errors.Is(err, progression.ErrTransientStore):
		return apierr.Unavailable("try_again", errors.New("temporary storage problem, try again"))
	case errors.Is(err, progression.ErrVerifierUnavailable):
		return apierr.Unavailable("verifier_unavailable", errors.New("GitHub could not be reached, try again"))
	case errors.Is(err, progression.ErrDispatchFailed):
		return apierr.Unavailable("dispatch_failed", err)
	}
	return apierr.New(http.StatusInternalServerError, "internal_error", errors.New("internal error"))
}

func RespondEngineError(c *gin.Context, err error) {
	ae := ToAPIError(err)
	if ae.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	RespondError(c, ae.Status, ae.Code, ae)
}
