package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"emrSocket/internal/handlers"
	"emrSocket/internal/models"
	"emrSocket/internal/realtime"
	"emrSocket/internal/repositories"
	"emrSocket/internal/services"
	"emrSocket/internal/testutil"
)

type restFixture struct {
	router   *gin.Engine
	db       *gorm.DB
	auth     *services.AuthenticationService
	emitter  *testutil.RecordingEmitter
	presence *services.PresenceService
}

type responseBody struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  []string        `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

func newRestFixture(t *testing.T) *restFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger()
	emitter := &testutil.RecordingEmitter{}

	staffRepo := repositories.NewStaffRepository(db)
	auth := services.NewAuthenticationService(staffRepo, services.TokenOptions{
		Secret:     []byte(testutil.TestSecret),
		Issuer:     testutil.TestIssuer,
		Expiration: time.Hour,
	})
	presence := services.NewPresenceService(repositories.NewMemoryPresenceRepository(), staffRepo, log)
	rest := handlers.NewRestHandler(
		auth,
		services.NewNotificationService(repositories.NewNotificationRepository(db), staffRepo, emitter, log),
		services.NewChatService(repositories.NewChatRepository(db), staffRepo, emitter, log),
		presence,
		services.NewBroadcastService(emitter),
		services.NewFileManagerService(nil, ""),
		log,
	)

	router := gin.New()
	router.GET("/healthz", rest.Healthz)
	api := router.Group("/api")
	api.POST("/auth/login", rest.Login)
	protected := api.Group("")
	protected.Use(handlers.MustAuthenticateMiddleware(auth))
	protected.GET("/notifications", rest.GetNotifications)
	protected.POST("/notifications", rest.CreateNotification)
	protected.PATCH("/notifications/:id/read", rest.MarkNotificationRead)
	protected.GET("/chat/messages", rest.GetChatMessages)
	protected.POST("/chat/messages", rest.SendChatMessage)
	protected.POST("/chat/attachments", rest.UploadChatAttachment)
	protected.GET("/presence", rest.GetOnlineUsers)
	protected.POST("/broadcasts", rest.Broadcast)

	return &restFixture{router: router, db: db, auth: auth, emitter: emitter, presence: presence}
}

func (f *restFixture) tokenFor(t *testing.T, user *models.StaffUser) string {
	t.Helper()
	token, err := f.auth.IssueToken(realtime.Identity{UserID: user.ID, HospitalID: user.HospitalID, Role: user.Role}, user.Email)
	require.NoError(t, err)
	return token
}

func (f *restFixture) do(t *testing.T, method, path, token string, body any) (int, responseBody) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return f.serve(t, req)
}

func (f *restFixture) serve(t *testing.T, req *http.Request) (int, responseBody) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	var resp responseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func TestRest_Healthz(t *testing.T) {
	f := newRestFixture(t)
	status, resp := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)
}

func TestRest_Login(t *testing.T) {
	f := newRestFixture(t)
	testutil.CreateStaff(t, f.db, 10, "doctor", "doc@h10.org", "password1")

	status, resp := f.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequestBody{Email: "doc@h10.org", Password: "password1"})
	require.Equal(t, http.StatusOK, status)
	var login models.LoginResponse
	require.NoError(t, json.Unmarshal(resp.Data, &login))
	identity, err := f.auth.VerifyToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, uint(10), identity.HospitalID)
	assert.Equal(t, "doctor", identity.Role)

	status, resp = f.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequestBody{Email: "doc@h10.org", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, []string{"wrong password"}, resp.Errors)
}

func TestRest_RequiresToken(t *testing.T) {
	f := newRestFixture(t)

	status, resp := f.do(t, http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, resp.Success)

	status, _ = f.do(t, http.MethodGet, "/api/notifications", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRest_NotificationFlow(t *testing.T) {
	f := newRestFixture(t)
	doctor := testutil.CreateStaff(t, f.db, 10, "doctor", "doc@h10.org", "password1")
	nurse := testutil.CreateStaff(t, f.db, 10, "nurse", "nurse@h10.org", "password1")
	outsider := testutil.CreateStaff(t, f.db, 20, "nurse", "nurse@h20.org", "password1")

	status, resp := f.do(t, http.MethodPost, "/api/notifications", f.tokenFor(t, doctor), map[string]any{
		"targetUserId": nurse.ID,
		"title":        "Bed 4",
		"message":      "Vitals due",
	})
	require.Equal(t, http.StatusCreated, status)
	var created models.NotificationResponse
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.True(t, created.Delivered)

	emission, ok := f.emitter.Last()
	require.True(t, ok)
	assert.Equal(t, realtime.Target{Room: realtime.UserRoom(nurse.ID), HospitalScope: 10}, emission.Target)

	status, _ = f.do(t, http.MethodPost, "/api/notifications", f.tokenFor(t, doctor), map[string]any{
		"targetUserId": outsider.ID,
		"title":        "t",
		"message":      "m",
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodPost, "/api/notifications", f.tokenFor(t, doctor), map[string]any{"title": "missing message"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = f.do(t, http.MethodGet, "/api/notifications?page=1&size=10", f.tokenFor(t, nurse), nil)
	require.Equal(t, http.StatusOK, status)
	var page models.PaginatedResponse
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Equal(t, int64(1), page.Total)

	status, _ = f.do(t, http.MethodGet, "/api/notifications", f.tokenFor(t, outsider), nil)
	assert.Equal(t, http.StatusOK, status)

	readPath := fmt.Sprintf("/api/notifications/%d/read", created.Notification.ID)
	status, _ = f.do(t, http.MethodPatch, readPath, f.tokenFor(t, outsider), nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = f.do(t, http.MethodPatch, readPath, f.tokenFor(t, nurse), nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = f.do(t, http.MethodPatch, "/api/notifications/abc/read", f.tokenFor(t, nurse), nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRest_ChatMessages(t *testing.T) {
	f := newRestFixture(t)
	doctor := testutil.CreateStaff(t, f.db, 10, "doctor", "doc@h10.org", "password1")
	nurse := testutil.CreateStaff(t, f.db, 10, "nurse", "nurse@h10.org", "password1")

	status, _ := f.do(t, http.MethodPost, "/api/chat/messages", f.tokenFor(t, doctor), map[string]any{
		"targetUserId": nurse.ID,
		"message":      "see bed 4",
	})
	require.Equal(t, http.StatusCreated, status)
	emission, ok := f.emitter.Last()
	require.True(t, ok)
	assert.Equal(t, "chat:message:new", emission.Event)

	status, resp := f.do(t, http.MethodGet, fmt.Sprintf("/api/chat/messages?with=%d", doctor.ID), f.tokenFor(t, nurse), nil)
	require.Equal(t, http.StatusOK, status)
	var page models.PaginatedResponse
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Equal(t, int64(1), page.Total)

	status, _ = f.do(t, http.MethodGet, "/api/chat/messages?with=abc", f.tokenFor(t, nurse), nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRest_AttachmentWithoutStorage(t *testing.T) {
	f := newRestFixture(t)
	doctor := testutil.CreateStaff(t, f.db, 10, "doctor", "doc@h10.org", "password1")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/chat/attachments", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.tokenFor(t, doctor))
	status, resp := f.serve(t, req)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, []string{"file storage unavailable"}, resp.Errors)
}

func TestRest_PresenceAndBroadcast(t *testing.T) {
	f := newRestFixture(t)
	admin := testutil.CreateStaff(t, f.db, 10, "admin", "admin@h10.org", "password1")
	nurse := testutil.CreateStaff(t, f.db, 10, "nurse", "nurse@h10.org", "password1")

	f.presence.Connected(context.Background(), realtime.Identity{UserID: nurse.ID, HospitalID: 10, Role: "nurse"})
	status, resp := f.do(t, http.MethodGet, "/api/presence", f.tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, status)
	var online []models.StaffUserResponse
	require.NoError(t, json.Unmarshal(resp.Data, &online))
	require.Len(t, online, 1)
	assert.Equal(t, nurse.ID, online[0].ID)

	status, _ = f.do(t, http.MethodPost, "/api/broadcasts", f.tokenFor(t, admin), map[string]any{"role": "nurse", "title": "Drill", "message": "3pm"})
	assert.Equal(t, http.StatusAccepted, status)
	emission, ok := f.emitter.Last()
	require.True(t, ok)
	assert.Equal(t, realtime.Target{Room: "role-nurse", HospitalScope: 10}, emission.Target)

	status, _ = f.do(t, http.MethodPost, "/api/broadcasts", f.tokenFor(t, nurse), map[string]any{"title": "Drill", "message": "3pm"})
	assert.Equal(t, http.StatusForbidden, status)
}
