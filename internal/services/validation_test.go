package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid split request", func(t *testing.T) {
		req := SplitTransferRequest{
			BuyerAccountID:      "b",
			InstructorAccountID: "i",
			PlatformAccountID:   "p",
			GrossAmount:         100,
			Currency:            "USD",
			IdempotencyKey:      "stripe_ch_1",
		}
		assert.NoError(t, vh.ValidateStruct(&req))
	})

	t.Run("missing required fields", func(t *testing.T) {
		err := vh.ValidateStruct(&SplitTransferRequest{Currency: "US"})
		require.Error(t, err)

		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Len(t, verrs, 5) // three accounts, currency length, key
	})

	t.Run("purchase event currency must be alphabetic", func(t *testing.T) {
		event := newPurchaseEvent()
		event.Currency = "U5D"
		err := vh.ValidateStruct(&event)
		require.Error(t, err)

		details := ValidationDetails(err)
		assert.Contains(t, details, "Currency")
	})
}

func TestValidationDetails(t *testing.T) {
	vh := NewValidationHelper()
	err := vh.ValidateStruct(&SplitTransferRequest{})
	require.Error(t, err)

	wrapped := fmt.Errorf("invalid split transfer: %w", err)
	details := ValidationDetails(wrapped)
	assert.Equal(t, "Field Validation Failed on 'required' tag", details["IdempotencyKey"])

	assert.Nil(t, ValidationDetails(assert.AnError))
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("with validation errors", func(t *testing.T) {
		validationErr := NewValidationHelper().ValidateStruct(&SplitTransferRequest{Currency: "USD"})
		require.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Validation failed", response.Error)
		assert.Contains(t, response.Details, "BuyerAccountID")
		assert.Contains(t, response.Details, "IdempotencyKey")
		assert.NotContains(t, response.Details, "Currency")
	})

	t.Run("non-validation error carries no details", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "Unprocessable", http.StatusUnprocessableEntity, assert.AnError)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Nil(t, response.Details)
	})
}
