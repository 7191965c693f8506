package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/P3chys/ustam-api/internal/config"
	"github.com/P3chys/ustam-api/internal/middleware"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/P3chys/ustam-api/internal/repository/memory"
	"github.com/P3chys/ustam-api/internal/services"
	"github.com/P3chys/ustam-api/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testConfig = &config.Config{JWTSecret: "handler-test-secret"}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]int  `json:"meta"`
	Error   struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type reviewAPI struct {
	router    *gin.Engine
	store     *memory.Store
	customer  uuid.UUID
	craftsman models.Craftsman
	quote     models.Quote
}

func newReviewAPI(t *testing.T) *reviewAPI {
	t.Helper()

	api := &reviewAPI{
		store:     memory.New(),
		customer:  uuid.New(),
		craftsman: models.Craftsman{ID: uuid.New(), UserID: uuid.New(), BusinessName: "Kaya Boya"},
	}
	api.store.PutCraftsman(api.craftsman)
	api.quote = api.addQuote(models.QuoteCompleted)

	svc := services.NewReviewService(api.store, services.ReviewDeps{Background: func(fn func()) { fn() }})

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.GET("/reviews/:id", GetReview(svc))
	v1.GET("/craftsmen/:id/reviews", ListCraftsmanReviews(svc))
	v1.GET("/craftsmen/:id/rating", GetRatingSummary(svc))

	protected := v1.Group("", middleware.AuthRequired(testConfig, nil))
	protected.POST("/quotes/:id/reviews", middleware.RoleRequired(models.RoleCustomer), CreateReview(svc))
	protected.PUT("/reviews/:id", UpdateReview(svc))
	protected.DELETE("/reviews/:id", DeleteReview(svc))

	admin := v1.Group("/admin", middleware.AuthRequired(testConfig, nil), middleware.AdminRequired())
	admin.DELETE("/reviews/:id", DeleteReview(svc))

	api.router = r
	return api
}

func (a *reviewAPI) addQuote(status models.QuoteStatus) models.Quote {
	q := models.Quote{ID: uuid.New(), CustomerID: a.customer, CraftsmanID: a.craftsman.ID, Status: status}
	a.store.PutQuote(q)
	return q
}

func token(t *testing.T, userID uuid.UUID, role models.UserRole) string {
	t.Helper()
	tok, err := utils.GenerateToken(userID, role, testConfig.JWTSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, r http.Handler, method, path, bearerToken string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (a *reviewAPI) reviewPath() string {
	return "/api/v1/quotes/" + a.quote.ID.String() + "/reviews"
}

func TestCreateReviewHandler_CreatedThenConflict(t *testing.T) {
	api := newReviewAPI(t)
	tok := token(t, api.customer, models.RoleCustomer)

	w, env := do(t, api.router, http.MethodPost, api.reviewPath(), tok, gin.H{"rating": 5, "comment": "Çok memnun kaldık, teşekkürler"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)
	var review models.Review
	require.NoError(t, json.Unmarshal(env.Data, &review))
	assert.Equal(t, 5, review.Rating)
	assert.Equal(t, api.quote.ID, review.QuoteID)

	w, env = do(t, api.router, http.MethodPost, api.reviewPath(), tok, gin.H{"rating": 3})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "REVIEW_ALREADY_EXISTS", env.Error.Code)
}

func TestCreateReviewHandler_ErrorStatuses(t *testing.T) {
	api := newReviewAPI(t)
	pending := api.addQuote(models.QuotePending)
	customer := token(t, api.customer, models.RoleCustomer)
	stranger := token(t, uuid.New(), models.RoleCustomer)

	tests := []struct {
		name   string
		path   string
		token  string
		body   interface{}
		status int
		code   string
	}{
		{"other customer", api.reviewPath(), stranger, gin.H{"rating": 5}, http.StatusForbidden, "QUOTE_ACCESS_DENIED"},
		{"job not completed", "/api/v1/quotes/" + pending.ID.String() + "/reviews", customer, gin.H{"rating": 5}, http.StatusUnprocessableEntity, "QUOTE_STATUS_INVALID"},
		{"unknown quote", "/api/v1/quotes/" + uuid.NewString() + "/reviews", customer, gin.H{"rating": 5}, http.StatusNotFound, "QUOTE_NOT_FOUND"},
		{"malformed quote id", "/api/v1/quotes/nope/reviews", customer, gin.H{"rating": 5}, http.StatusNotFound, "QUOTE_NOT_FOUND"},
		{"rating out of range", api.reviewPath(), customer, gin.H{"rating": 6}, http.StatusBadRequest, "REVIEW_VALIDATION_ERROR"},
		{"short comment", api.reviewPath(), customer, gin.H{"rating": 4, "comment": "kısa"}, http.StatusBadRequest, "REVIEW_VALIDATION_ERROR"},
		{"wrong craftsman", api.reviewPath(), customer, gin.H{"rating": 4, "craftsman_id": uuid.NewString()}, http.StatusNotFound, "CRAFTSMAN_NOT_FOUND"},
		{"malformed json", api.reviewPath(), customer, `{"rating":`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"craftsman role", api.reviewPath(), token(t, api.craftsman.UserID, models.RoleCraftsman), gin.H{"rating": 5}, http.StatusForbidden, "FORBIDDEN"},
		{"no token", api.reviewPath(), "", gin.H{"rating": 5}, http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, api.router, http.MethodPost, tt.path, tt.token, tt.body)

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, 0, api.store.ReviewCount())
		})
	}
}

func TestCreateReviewHandler_ValidationDetails(t *testing.T) {
	api := newReviewAPI(t)

	_, env := do(t, api.router, http.MethodPost, api.reviewPath(), token(t, api.customer, models.RoleCustomer), gin.H{"rating": 0, "quality": 9})

	assert.Equal(t, "rating must be between 1 and 5", env.Error.Message)
	assert.Contains(t, env.Error.Details, "rating")
	assert.Contains(t, env.Error.Details, "quality")
}

func TestReviewHandlers_UpdateDeleteAndReads(t *testing.T) {
	api := newReviewAPI(t)
	customer := token(t, api.customer, models.RoleCustomer)

	_, env := do(t, api.router, http.MethodPost, api.reviewPath(), customer, gin.H{"rating": 2})
	var created models.Review
	require.NoError(t, json.Unmarshal(env.Data, &created))
	reviewPath := "/api/v1/reviews/" + created.ID.String()

	w, env := do(t, api.router, http.MethodPut, reviewPath, token(t, uuid.New(), models.RoleCustomer), gin.H{"rating": 5})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "REVIEW_ACCESS_DENIED", env.Error.Code)

	w, _ = do(t, api.router, http.MethodPut, reviewPath, customer, gin.H{"rating": 4})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, api.router, http.MethodGet, "/api/v1/craftsmen/"+api.craftsman.ID.String()+"/rating", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary models.RatingSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 4.0, summary.AverageRating)
	assert.Equal(t, 1, summary.TotalReviews)
	assert.Equal(t, int64(1), summary.Distribution["4"])

	w, env = do(t, api.router, http.MethodGet, "/api/v1/craftsmen/"+api.craftsman.ID.String()+"/reviews?per_page=500", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.Meta["total"])
	assert.Equal(t, 100, env.Meta["per_page"])

	w, _ = do(t, api.router, http.MethodGet, reviewPath, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, api.router, http.MethodDelete, "/api/v1/admin/reviews/"+created.ID.String(), token(t, uuid.New(), models.RoleAdmin), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, env = do(t, api.router, http.MethodGet, reviewPath, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "REVIEW_NOT_FOUND", env.Error.Code)

	w, env = do(t, api.router, http.MethodGet, "/api/v1/craftsmen/"+uuid.NewString()+"/rating", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CRAFTSMAN_NOT_FOUND", env.Error.Code)
}

func TestDeleteReviewHandler_AdminRouteRequiresAdmin(t *testing.T) {
	api := newReviewAPI(t)

	w, env := do(t, api.router, http.MethodDelete, "/api/v1/admin/reviews/"+uuid.NewString(), token(t, api.customer, models.RoleCustomer), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}
