package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/campusops/erp/internal/app/controllers"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/repositories/memory"
	"github.com/campusops/erp/internal/app/services"
	"github.com/campusops/erp/internal/middleware"
	"github.com/campusops/erp/internal/pkg/auth"
	"github.com/campusops/erp/internal/pkg/helpers"
	"github.com/campusops/erp/internal/pkg/identifier"
	"github.com/campusops/erp/internal/pkg/identity"
	"github.com/campusops/erp/internal/pkg/notifier"
	"github.com/campusops/erp/internal/pkg/validation"
	"github.com/campusops/erp/internal/pkg/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.RegisterWithGin()
}

type inlineTasks struct{}

func (inlineTasks) Enqueue(_ string, fn notifier.TaskFunc) bool {
	_ = fn(context.Background())
	return true
}

type nopMailer struct{}

func (nopMailer) SendWelcomeEmail(context.Context, string, string, string, string) error { return nil }
func (nopMailer) SendPasswordResetEmail(context.Context, string, string) error            { return nil }

type testAPI struct {
	router   *gin.Engine
	accounts *services.AccountService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db := memory.New()
	repos := db.Repositories()
	lgr := zerolog.Nop()
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "routes-test-secret",
		AccessTokenExp:  time.Minute,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "erp-test",
	})
	provider := identity.NewLocal(repos, jwtService, identity.LocalConfig{
		ResetURL:   "http://localhost:3000/reset-password",
		BcryptCost: bcrypt.MinCost,
	})

	tasks := inlineTasks{}
	hub := websocket.NewHub(lgr)
	notifications := services.NewNotificationService(repos, hub, lgr)
	accounts := services.NewAccountService(db, repos, services.NewCounterService(db), provider, notifications, nopMailer{}, tasks, lgr)
	attendance := services.NewAttendanceService(repos, 0, lgr)

	h := Handlers{
		Auth:          controllers.NewAuthController(services.NewAuthService(repos, provider, provider, nopMailer{}, tasks, lgr), accounts, lgr),
		Accounts:      controllers.NewAccountController(accounts),
		Hostels:       controllers.NewHostelController(services.NewHostelService(db, repos, lgr)),
		Classes:       controllers.NewClassController(services.NewClassService(db, repos, tasks, lgr)),
		Courses:       controllers.NewCourseController(services.NewCourseService(repos, nil, lgr)),
		Attendance:    controllers.NewAttendanceController(attendance),
		Fees:          controllers.NewFeeController(services.NewFeeService(db, repos, nil, notifications, tasks, lgr), lgr),
		Exams:         controllers.NewExamController(services.NewExamService(repos, attendance, notifications, tasks, lgr)),
		Notifications: controllers.NewNotificationController(notifications),
		WebSocket:     websocket.NewHandler(hub, lgr),
	}

	router := gin.New()
	router.Use(middleware.Recovery(lgr))
	SetupRouter(router, h, middleware.NewAuthMiddleware(provider, lgr))
	return &testAPI{router: router, accounts: accounts}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// login signs in with the initial password derived from the name and date of birth
func (a *testAPI) login(t *testing.T, email, name, dob string) string {
	t.Helper()
	born, err := helpers.ParseDate(dob)
	require.NoError(t, err)

	w := a.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{
		Email:    email,
		Password: identifier.InitialPassword(name, born),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data dto.AuthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token.AccessToken)
	return resp.Data.Token.AccessToken
}

func (a *testAPI) mustAdmin(t *testing.T) string {
	t.Helper()
	_, err := a.accounts.ProvisionStaff(context.Background(), &dto.CreateStaffRequest{
		Name:        "Meera Iyer",
		Email:       "meera@college.edu",
		DateOfBirth: "1979-11-03",
		Role:        models.RoleAdmin,
		Department:  "Administration",
	})
	require.NoError(t, err)
	return a.login(t, "meera@college.edu", "Meera Iyer", "1979-11-03")
}

// mustStudent returns the student profile ID
func (a *testAPI) mustStudent(t *testing.T, name, email string) string {
	t.Helper()
	resp, err := a.accounts.ProvisionStudent(context.Background(), &dto.CreateStudentRequest{
		Name:        name,
		Email:       email,
		DateOfBirth: "2006-08-14",
		Program:     "B.Tech",
		Branch:      "Computer Science",
		Section:     "A",
		Year:        1,
		Semester:    1,
		TotalFees:   150000,
		FeeDueDate:  "2099-08-31",
	})
	require.NoError(t, err)
	return resp.ProfileID
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorCode {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}

func TestLoginAndProfile(t *testing.T) {
	api := newTestAPI(t)
	studentID := api.mustStudent(t, "Asha Verma", "asha@college.edu")
	token := api.login(t, "asha@college.edu", "Asha Verma", "2006-08-14")

	w := api.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			User    models.User `json:"user"`
			Profile struct {
				ID string `json:"id"`
			} `json:"profile"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.RoleStudent, resp.Data.User.Role)
	assert.Equal(t, studentID, resp.Data.User.RoleDocID)
	assert.Equal(t, studentID, resp.Data.Profile.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	api := newTestAPI(t)
	api.mustStudent(t, "Asha Verma", "asha@college.edu")

	w := api.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{
		Email:    "asha@college.edu",
		Password: "not-the-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrorCodeValidationFailed, errorCode(t, w))
}

func TestAuthenticationRequired(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrorCodeUnauthorized, errorCode(t, w))

	w = api.do(t, http.MethodGet, "/api/v1/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleChecks(t *testing.T) {
	api := newTestAPI(t)
	mine := api.mustStudent(t, "Asha Verma", "asha@college.edu")
	other := api.mustStudent(t, "Rohan Das", "rohan@college.edu")
	token := api.login(t, "asha@college.edu", "Asha Verma", "2006-08-14")

	w := api.do(t, http.MethodPost, "/api/v1/hostels", token, dto.CreateHostelRequest{
		Name:  "Ganga",
		Type:  "boys",
		Rooms: []dto.CreateRoomRequest{{Number: "G-101", Capacity: 2}},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrorCodeForbidden, errorCode(t, w))

	w = api.do(t, http.MethodGet, "/api/v1/students", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/students/"+mine, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/students/"+other, token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/students/"+other+"/fees", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHostelAllocationOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := api.mustAdmin(t)
	first := api.mustStudent(t, "Asha Verma", "asha@college.edu")
	second := api.mustStudent(t, "Rohan Das", "rohan@college.edu")

	w := api.do(t, http.MethodPost, "/api/v1/hostels", admin, dto.CreateHostelRequest{
		Name:  "Ganga",
		Type:  "mixed",
		Rooms: []dto.CreateRoomRequest{{Number: "G-101", Capacity: 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data models.Hostel `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	allocations := "/api/v1/hostels/" + created.Data.ID + "/allocations"

	w = api.do(t, http.MethodPost, allocations, admin, dto.RoomAllocationRequest{RoomNumber: "G-101", StudentID: first})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, allocations, admin, dto.RoomAllocationRequest{RoomNumber: "G-101", StudentID: second})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrorCodeRoomFull, errorCode(t, w))

	w = api.do(t, http.MethodPost, allocations, admin, dto.RoomAllocationRequest{RoomNumber: "Z-999", StudentID: second})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/hostels/"+created.Data.ID+"/deallocations", admin,
		dto.RoomAllocationRequest{RoomNumber: "G-101", StudentID: first})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, allocations, admin, dto.RoomAllocationRequest{RoomNumber: "G-101", StudentID: second})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAdminRegistersStudent(t *testing.T) {
	api := newTestAPI(t)
	admin := api.mustAdmin(t)

	w := api.do(t, http.MethodPost, "/api/v1/accounts/students", admin, dto.CreateStudentRequest{
		Name:        "Kiran Rao",
		Email:       "kiran@college.edu",
		DateOfBirth: "2006-01-20",
		Program:     "B.Tech",
		Branch:      "Computer Science",
		Section:     "B",
		Year:        1,
		Semester:    1,
		TotalFees:   120000,
		FeeDueDate:  "2099-08-31",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data dto.ProvisionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.LoginID)

	w = api.do(t, http.MethodPost, "/api/v1/accounts/students", admin, dto.CreateStudentRequest{
		Name:        "Kiran Rao",
		Email:       "kiran@college.edu",
		DateOfBirth: "2006-01-20",
		Program:     "B.Tech",
		Branch:      "Computer Science",
		Section:     "B",
		Year:        1,
		Semester:    1,
		TotalFees:   120000,
		FeeDueDate:  "2099-08-31",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/students/"+resp.Data.ProfileID+"/fees", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestSetupSwagger(t *testing.T) {
	router := gin.New()
	assert.False(t, SetupSwagger(router, filepath.Join(t.TempDir(), "missing.json")))

	doc := filepath.Join(t.TempDir(), "swagger.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{"swagger":"2.0"}`), 0o644))
	require.True(t, SetupSwagger(router, doc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, swaggerDocURL, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"swagger":"2.0"`)
}
