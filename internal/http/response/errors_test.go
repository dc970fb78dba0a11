package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/apierr"
)

func TestToAPIError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("task x: %w", progression.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("day 15: %w", progression.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument"},
		{fmt.Errorf("day done: %w", progression.ErrConflict), http.StatusConflict, "conflict"},
		{&progression.StoreError{Op: "CompleteTask", Err: errors.New("conn reset")}, http.StatusServiceUnavailable, "try_again"},
		{fmt.Errorf("%w: timeout", progression.ErrVerifierUnavailable), http.StatusServiceUnavailable, "verifier_unavailable"},
		{&progression.VerificationError{Kind: types.VerificationRepository, Reason: "repository name must end in -gitguide"}, http.StatusUnprocessableEntity, "verification_failed"},
		{apierr.BadRequest("invalid_project_id", errors.New("bad uuid")), http.StatusBadRequest, "invalid_project_id"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for i, tc := range cases {
		got := ToAPIError(tc.err)
		if got.Status != tc.status || got.Code != tc.code {
			t.Fatalf("case %d: got %d/%s want %d/%s", i, got.Status, got.Code, tc.status, tc.code)
		}
	}
}

func TestRespondEngineErrorShowsReason(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondEngineError(c, &progression.VerificationError{Kind: types.VerificationProfile, Reason: `GitHub user "ghost" not found`})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: %d", w.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Message != `GitHub user "ghost" not found` || env.Error.Code != "verification_failed" {
		t.Fatalf("envelope: %+v", env)
	}
}
