package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hard4j/bvp-attendance-api/internal/dto"
	"github.com/hard4j/bvp-attendance-api/internal/middleware"
	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
	"github.com/hard4j/bvp-attendance-api/pkg/export"
)

type attendanceServiceMock struct {
	markReq    dto.MarkLectureRequest
	markResp   *dto.MarkLectureResponse
	markErr    error
	session    dto.SessionQuery
	updateResp *dto.SessionUpdateResponse
}

func (m *attendanceServiceMock) MarkLecture(ctx context.Context, req dto.MarkLectureRequest, claims *models.JWTClaims) (*dto.MarkLectureResponse, error) {
	m.markReq = req
	return m.markResp, m.markErr
}

func (m *attendanceServiceMock) ValidateAbsentees(ctx context.Context, req dto.ValidateAbsenteesRequest, claims *models.JWTClaims) (*dto.ValidateAbsenteesResponse, error) {
	return &dto.ValidateAbsenteesResponse{Valid: req.AbsentRolls, Invalid: []string{}}, nil
}

func (m *attendanceServiceMock) Roster(ctx context.Context, assignmentID string, claims *models.JWTClaims) (*dto.RosterResponse, error) {
	return &dto.RosterResponse{}, nil
}

func (m *attendanceServiceMock) Session(ctx context.Context, query dto.SessionQuery, claims *models.JWTClaims) (*dto.SessionResponse, error) {
	m.session = query
	return &dto.SessionResponse{Date: query.Date}, nil
}

func (m *attendanceServiceMock) UpdateSession(ctx context.Context, req dto.SessionUpdateRequest, claims *models.JWTClaims) (*dto.SessionUpdateResponse, error) {
	return m.updateResp, nil
}

type reportServiceMock struct {
	query     dto.AttendanceReportQuery
	defaulter dto.DefaulterQuery
	report    *models.AttendanceReport
	cached    bool
	err       error
}

func (m *reportServiceMock) Attendance(ctx context.Context, query dto.AttendanceReportQuery, claims *models.JWTClaims) (*models.AttendanceReport, bool, error) {
	m.query = query
	return m.report, m.cached, m.err
}

func (m *reportServiceMock) Defaulters(ctx context.Context, query dto.DefaulterQuery, claims *models.JWTClaims) (*models.DefaulterReport, bool, error) {
	m.defaulter = query
	return &models.DefaulterReport{BatchID: query.BatchID}, false, nil
}

func (m *reportServiceMock) Historical(ctx context.Context, query dto.AttendanceReportQuery, claims *models.JWTClaims) (*models.HistoricalMatrix, bool, error) {
	m.query = query
	return &models.HistoricalMatrix{}, false, nil
}

type exporterStub struct {
	format string
}

func (e *exporterStub) AttendanceReport(report *models.AttendanceReport, format string) (*export.Document, error) {
	e.format = format
	return &export.Document{Filename: "attendance_2024-06-02_2024-07-01.csv", ContentType: "text/csv", Payload: []byte("Roll No\n")}, nil
}

func (e *exporterStub) Defaulters(report *models.DefaulterReport, format string) (*export.Document, error) {
	return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv, xlsx or pdf")
}

func (e *exporterStub) Historical(matrix *models.HistoricalMatrix, format string) (*export.Document, error) {
	return &export.Document{Filename: "historical.xlsx", ContentType: export.FormatXLSX.ContentType(), Payload: []byte("xlsx")}, nil
}

type authenticatorStub struct {
	called string
}

func (a *authenticatorStub) AdminLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	a.called = "admin"
	return &models.LoginResponse{AccessToken: "t", User: models.UserInfo{Username: req.Username, Role: models.RoleAdmin}}, nil
}

func (a *authenticatorStub) StaffLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	a.called = "staff"
	return nil, appErrors.ErrInvalidCredentials
}

func (a *authenticatorStub) HODLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	a.called = "hod"
	return &models.LoginResponse{AccessToken: "t"}, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func staffClaims() *models.JWTClaims {
	return &models.JWTClaims{StaffID: "staff-1", Username: "asha", Role: models.RoleStaff}
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestAttendanceHandlerMark(t *testing.T) {
	svc := &attendanceServiceMock{markResp: &dto.MarkLectureResponse{AssignmentID: "a-1", LectureNumber: 2, Present: 2, Absent: 1}}
	h := NewAttendanceHandler(svc)

	payload, _ := json.Marshal(dto.MarkLectureRequest{AssignmentID: "a-1", Date: "2024-07-01", AbsentRolls: []string{"R2"}})
	c, w := newGinContext(http.MethodPost, "/attendance", payload)
	c.Set(middleware.ContextUserKey, staffClaims())

	h.Mark(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"R2"}, svc.markReq.AbsentRolls)

	var resp dto.MarkLectureResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.Equal(t, 2, resp.LectureNumber)
}

func TestAttendanceHandlerMarkRejectsMalformedBody(t *testing.T) {
	h := NewAttendanceHandler(&attendanceServiceMock{})

	c, w := newGinContext(http.MethodPost, "/attendance", []byte("{"))
	h.Mark(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, w).Error.Code)
}

func TestAttendanceHandlerMarkSurfacesInvalidRolls(t *testing.T) {
	svc := &attendanceServiceMock{markErr: appErrors.WithDetails(appErrors.ErrValidation, "absent rolls are not on the roster", map[string]interface{}{"invalid_rolls": []string{"R9"}})}
	h := NewAttendanceHandler(svc)

	payload, _ := json.Marshal(dto.MarkLectureRequest{AssignmentID: "a-1", AbsentRolls: []string{"R9"}})
	c, w := newGinContext(http.MethodPost, "/attendance", payload)
	h.Mark(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "R9")
}

func TestAttendanceHandlerSessionParsesQuery(t *testing.T) {
	svc := &attendanceServiceMock{}
	h := NewAttendanceHandler(svc)

	c, w := newGinContext(http.MethodGet, "/attendance/session?batch_id=b-1&subject_id=s-1&lecture_type=pr&date=2024-07-01", nil)
	h.Session(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.LecturePractical, svc.session.LectureType)
	assert.Equal(t, "b-1", svc.session.BatchID)
	assert.Equal(t, "2024-07-01", svc.session.Date)
}

func TestReportHandlerAttendanceJSON(t *testing.T) {
	svc := &reportServiceMock{report: &models.AttendanceReport{From: "2024-06-02", To: "2024-07-01"}, cached: true}
	h := NewReportHandler(svc, &exporterStub{})

	c, w := newGinContext(http.MethodGet, "/reports/attendance?batch_id=b-1&subject_id=s-1&lecture_type=pr&sub_batch=1", nil)
	h.Attendance(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PR", svc.query.LectureType)
	require.NotNil(t, svc.query.SubBatch)
	assert.Equal(t, 1, *svc.query.SubBatch)
	assert.Equal(t, true, decode(t, w).Meta["cache_hit"])
}

func TestReportHandlerRejectsBadSubBatch(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{}, &exporterStub{})

	c, w := newGinContext(http.MethodGet, "/reports/attendance?sub_batch=zero", nil)
	h.Attendance(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerAttendanceExport(t *testing.T) {
	exporter := &exporterStub{}
	h := NewReportHandler(&reportServiceMock{report: &models.AttendanceReport{}}, exporter)

	c, w := newGinContext(http.MethodGet, "/reports/attendance?assignment_id=a-1&format=csv", nil)
	h.Attendance(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance_2024-06-02_2024-07-01.csv")
}

func TestReportHandlerDefaultersThreshold(t *testing.T) {
	svc := &reportServiceMock{}
	h := NewReportHandler(svc, &exporterStub{})

	c, w := newGinContext(http.MethodGet, "/reports/defaulters?batch_id=b-1&threshold=60.5", nil)
	h.Defaulters(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.defaulter.Threshold)
	assert.Equal(t, 60.5, *svc.defaulter.Threshold)

	c, w = newGinContext(http.MethodGet, "/reports/defaulters?batch_id=b-1&threshold=abc", nil)
	h.Defaulters(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerDefaultersExportError(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{}, &exporterStub{})

	c, w := newGinContext(http.MethodGet, "/reports/defaulters?batch_id=b-1&format=doc", nil)
	h.Defaulters(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerServiceError(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "no assignments match the report")}, &exporterStub{})

	c, w := newGinContext(http.MethodGet, "/reports/attendance", nil)
	h.Attendance(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthHandlerLogins(t *testing.T) {
	stub := &authenticatorStub{}
	h := NewAuthHandler(stub)
	payload, _ := json.Marshal(models.LoginRequest{Username: "admin", Password: "secret"})

	c, w := newGinContext(http.MethodPost, "/auth/admin/login", payload)
	h.AdminLogin(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", stub.called)

	c, w = newGinContext(http.MethodPost, "/auth/staff/login", payload)
	h.StaffLogin(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "staff", stub.called)
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(&authenticatorStub{})

	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{StaffID: "s-9", Username: "hod", Role: models.RoleHOD, DeptCode: "CO"})
	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)

	var info models.UserInfo
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &info))
	assert.Equal(t, "CO", info.DeptCode)
}

func TestBatchHandlerImportRequiresFile(t *testing.T) {
	h := NewBatchHandler(nil)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("note", "no file"))
	require.NoError(t, writer.Close())

	c, w := newGinContext(http.MethodPost, "/batches/b-1/students/import", body.Bytes())
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	h.ImportStudents(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
	})
	c, w := newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	h = NewMetricsHandler(nil, map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	c, w = newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis")
}

func TestMetricsHandlerWithoutMetrics(t *testing.T) {
	h := NewMetricsHandler(nil, nil)
	c, w := newGinContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "metrics disabled")
}

type tokenValidatorStub struct {
	claims map[string]*models.JWTClaims
}

func (v tokenValidatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v.claims[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrUnauthorized
}

func newTestRouter() (*gin.Engine, *attendanceServiceMock, *reportServiceMock) {
	gin.SetMode(gin.TestMode)
	attendance := &attendanceServiceMock{
		markResp:   &dto.MarkLectureResponse{AssignmentID: "a-1", LectureNumber: 1},
		updateResp: &dto.SessionUpdateResponse{Updated: 1},
	}
	reports := &reportServiceMock{report: &models.AttendanceReport{}}
	tokens := tokenValidatorStub{claims: map[string]*models.JWTClaims{
		"staff": staffClaims(),
		"admin": {Username: "admin", Role: models.RoleAdmin},
	}}

	r := gin.New()
	RegisterRoutes(r, "/api/v1", Handlers{
		Auth:        NewAuthHandler(&authenticatorStub{}),
		Attendance:  NewAttendanceHandler(attendance),
		Reports:     NewReportHandler(reports, &exporterStub{}),
		Departments: NewDepartmentHandler(nil),
		Subjects:    NewSubjectHandler(nil),
		Batches:     NewBatchHandler(nil),
		Staff:       NewStaffHandler(nil, nil),
		Assignments: NewAssignmentHandler(nil),
		Metrics:     NewMetricsHandler(nil, nil),
	}, tokens, zap.NewNop())
	return r, attendance, reports
}

func request(r *gin.Engine, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterAccessControl(t *testing.T) {
	r, _, _ := newTestRouter()
	mark, _ := json.Marshal(dto.MarkLectureRequest{AssignmentID: "a-1"})
	correction, _ := json.Marshal(dto.SessionUpdateRequest{Date: "2024-07-01"})

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   []byte
		status int
	}{
		{name: "health is public", method: http.MethodGet, path: "/health", status: http.StatusOK},
		{name: "login is public", method: http.MethodPost, path: "/api/v1/auth/hod/login", body: []byte(`{"username":"h","password":"p"}`), status: http.StatusOK},
		{name: "marking needs a token", method: http.MethodPost, path: "/api/v1/attendance", body: mark, status: http.StatusUnauthorized},
		{name: "staff can mark", method: http.MethodPost, path: "/api/v1/attendance", token: "staff", body: mark, status: http.StatusCreated},
		{name: "staff cannot correct", method: http.MethodPost, path: "/api/v1/attendance/session", token: "staff", body: correction, status: http.StatusForbidden},
		{name: "admin can correct", method: http.MethodPost, path: "/api/v1/attendance/session", token: "admin", body: correction, status: http.StatusOK},
		{name: "staff cannot list defaulters", method: http.MethodGet, path: "/api/v1/reports/defaulters?batch_id=b-1", token: "staff", status: http.StatusForbidden},
		{name: "staff can read reports", method: http.MethodGet, path: "/api/v1/reports/attendance?assignment_id=a-1", token: "staff", status: http.StatusOK},
		{name: "staff cannot manage departments", method: http.MethodPost, path: "/api/v1/departments", token: "staff", body: []byte(`{}`), status: http.StatusForbidden},
		{name: "unknown token", method: http.MethodGet, path: "/api/v1/auth/me", token: "forged", status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := request(r, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}
