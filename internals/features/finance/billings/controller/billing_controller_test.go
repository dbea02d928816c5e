package controller_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"schoolku_billing/internals/configs"
	database "schoolku_billing/internals/databases"
	"schoolku_billing/internals/features/finance/billings/controller"
	"schoolku_billing/internals/features/finance/billings/repository"
	route "schoolku_billing/internals/features/finance/billings/routes"
	"schoolku_billing/internals/features/finance/billings/service"
	termModel "schoolku_billing/internals/features/school/academics/academic_terms/model"
	sectionModel "schoolku_billing/internals/features/school/classes/class_sections/model"
	classModel "schoolku_billing/internals/features/school/classes/classes/model"
	studentModel "schoolku_billing/internals/features/school/students/model"
	helper "schoolku_billing/internals/helpers"
	schoolkuMiddleware "schoolku_billing/internals/middlewares/auth_school"
)

const testSecret = "test-secret"

type harness struct {
	app     *fiber.App
	school  uuid.UUID
	term    uuid.UUID
	grade5A uuid.UUID
	student uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: configs.NewGormLogger(log)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	h := &harness{school: uuid.New()}
	seedDirectory(t, db, h)

	configsRepo := repository.NewConfigRepository(db)
	engine := service.NewEngine(configsRepo, repository.NewDirectoryRepository(db), repository.NewPaymentRepository(db), service.EngineOptions{
		Workers: 2,
		Now:     func() time.Time { return time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC) },
		Logger:  log,
	})

	app := fiber.New(fiber.Config{
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: helper.JsonFromError,
	})
	admin := app.Group("/api/a",
		schoolkuMiddleware.AuthJWT(schoolkuMiddleware.AuthJWTOpts{Secret: testSecret}),
		schoolkuMiddleware.IsSchoolAdmin(),
	)
	route.BillingsAdminRoutes(admin, controller.NewBillingController(configsRepo, engine, time.UTC, log))
	h.app = app
	return h
}

func seedDirectory(t *testing.T, db *gorm.DB, h *harness) {
	t.Helper()
	term := termModel.AcademicTermModel{
		AcademicTermSchoolID: h.school, AcademicTermAcademicYear: "2023/2024", AcademicTermName: "Genap",
		AcademicTermStartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		AcademicTermEndDate:   time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		AcademicTermIsActive:  true,
	}
	require.NoError(t, db.Create(&term).Error)
	class := classModel.ClassModel{ClassSchoolID: h.school, ClassName: "5A"}
	require.NoError(t, db.Create(&class).Error)
	section := sectionModel.ClassSectionModel{ClassSectionSchoolID: h.school, ClassSectionClassID: class.ClassID, ClassSectionName: "5A-1"}
	require.NoError(t, db.Create(&section).Error)
	st := studentModel.SchoolStudentModel{
		SchoolStudentSchoolID: h.school, SchoolStudentAcademicTermID: term.AcademicTermID,
		SchoolStudentClassSectionID: section.ClassSectionID, SchoolStudentName: "Ahmad", SchoolStudentCode: "001",
	}
	require.NoError(t, db.Create(&st).Error)

	h.term, h.grade5A, h.student = term.AcademicTermID, class.ClassID, st.SchoolStudentID
}

func (h *harness) token(t *testing.T, roles ...string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":        uuid.NewString(),
		"school_id": h.school.String(),
		"school_roles": []map[string]any{
			{"school_id": h.school.String(), "roles": roles},
		},
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    map[string]any      `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := sonic.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if len(raw) > 0 {
		// data bisa berupa list; abaikan error decode untuk kasus itu
		_ = sonic.Unmarshal(raw, &env)
	}
	return resp.StatusCode, env
}

func (h *harness) configBody(extra map[string]any) map[string]any {
	b := map[string]any{
		"billing_configuration_school_cycle_id":  h.term.String(),
		"billing_configuration_scope":            "specific_grades",
		"billing_configuration_target_grade_ids": []string{h.grade5A.String()},
		"billing_configuration_type":             "spp",
		"billing_configuration_amount":           "500",
		"billing_configuration_recurrence":       "monthly",
		"billing_configuration_start_date":       "2024-01-01",
		"billing_configuration_end_date":         "2024-03-15",
	}
	for k, v := range extra {
		b[k] = v
	}
	return b
}

func TestAuth_RequiresAdminToken(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(t, http.MethodGet, "/api/a/billing-rules", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, _ = h.do(t, http.MethodGet, "/api/a/billing-rules", h.token(t, "teacher"), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = h.do(t, http.MethodGet, "/api/a/billing-rules", h.token(t, "admin"), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestCreateRule(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "admin")

	code, env := h.do(t, http.MethodPost, "/api/a/billing-rules", tok, map[string]any{
		"billing_rule_name":       "Denda telat",
		"billing_rule_type":       "late_fee",
		"billing_rule_start_day":  1,
		"billing_rule_end_day":    30,
		"billing_rule_value_type": "percentage",
		"billing_rule_value":      "10",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.Equal(t, "late_fee", env.Data["billing_rule_type"])
	assert.Equal(t, "active", env.Data["billing_rule_status"])

	// persentase > 100
	code, env = h.do(t, http.MethodPost, "/api/a/billing-rules", tok, map[string]any{
		"billing_rule_name":       "Salah",
		"billing_rule_type":       "late_fee",
		"billing_rule_value_type": "percentage",
		"billing_rule_value":      "150",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Errors, "billing_rule_value")

	// window terbalik ditolak validator
	code, env = h.do(t, http.MethodPost, "/api/a/billing-rules", tok, map[string]any{
		"billing_rule_name":      "Terbalik",
		"billing_rule_type":      "early_discount",
		"billing_rule_start_day": 10,
		"billing_rule_end_day":   0,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Errors, "billing_rule_end_day")
}

func TestCreateConfiguration_Validation(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "admin")

	// scope tanpa target
	code, env := h.do(t, http.MethodPost, "/api/a/billing-configurations", tok,
		h.configBody(map[string]any{"billing_configuration_target_grade_ids": []string{}}))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Errors, "billing_configuration_target_grade_ids")

	// recurrence tidak dikenal
	code, env = h.do(t, http.MethodPost, "/api/a/billing-configurations", tok,
		h.configBody(map[string]any{"billing_configuration_recurrence": "daily"}))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Errors, "billing_configuration_recurrence")

	// rule tidak ada
	code, env = h.do(t, http.MethodPost, "/api/a/billing-configurations", tok,
		h.configBody(map[string]any{"billing_configuration_rule_ids": []string{uuid.NewString()}}))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.NotEmpty(t, env.Errors)
}

func TestGenerateFlow(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "admin")

	code, env := h.do(t, http.MethodPost, "/api/a/billing-configurations", tok, h.configBody(nil))
	require.Equal(t, http.StatusCreated, code, env.Message)
	id, _ := env.Data["billing_configuration_id"].(string)
	require.NotEmpty(t, id)

	code, env = h.do(t, http.MethodGet, "/api/a/billing-configurations/"+id, tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "specific_grades", env.Data["billing_configuration_scope"])

	code, env = h.do(t, http.MethodGet, "/api/a/billing-configurations/"+id+"/preview", tok, nil)
	require.Equal(t, http.StatusOK, code)
	periods, _ := env.Data["periods"].([]any)
	assert.Len(t, periods, 3)

	code, env = h.do(t, http.MethodPost, "/api/a/billing-configurations/"+id+"/generate", tok, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	summary, _ := env.Data["summary"].(map[string]any)
	assert.EqualValues(t, 3, summary["created"])
	affected, _ := env.Data["affected"].([]any)
	assert.Len(t, affected, 3)

	code, env = h.do(t, http.MethodPost, "/api/a/billing-configurations/"+id+"/generate", tok, map[string]any{"refresh_unpaid": false})
	require.Equal(t, http.StatusOK, code)
	summary, _ = env.Data["summary"].(map[string]any)
	assert.EqualValues(t, 0, summary["created"])
	assert.EqualValues(t, 3, summary["existing"])

	code, env = h.do(t, http.MethodGet, "/api/a/students/"+h.student.String()+"/balance", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1500", env.Data["balance"])
}

func TestGenerate_NotFoundAndBadInput(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "admin")

	code, _ := h.do(t, http.MethodPost, "/api/a/billing-configurations/"+uuid.NewString()+"/generate", tok, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = h.do(t, http.MethodPost, "/api/a/billing-configurations/bukan-uuid/generate", tok, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := h.do(t, http.MethodGet, "/api/a/billing-configurations/"+uuid.NewString()+"/preview?as_of=01-02-2024", tok, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Errors, "as_of")
}
