// file: internals/features/finance/billings/controller/billing_controller.go
package controller

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	dto "schoolku_billing/internals/features/finance/billings/dto"
	"schoolku_billing/internals/features/finance/billings/repository"
	"schoolku_billing/internals/features/finance/billings/service"
	helper "schoolku_billing/internals/helpers"
	helperAuth "schoolku_billing/internals/helpers/auth"
	"schoolku_billing/internals/helpers/dbtime"
)

/* =======================================================
   BOOTSTRAP & HELPERS
======================================================= */

type BillingController struct {
	Configs  *repository.ConfigRepository
	Engine   *service.Engine
	Validate *validator.Validate
	// Loc zona default kalau token tidak membawa school_timezone
	Loc *time.Location
	Log *zap.Logger
}

func NewBillingController(configs *repository.ConfigRepository, engine *service.Engine, loc *time.Location, log *zap.Logger) *BillingController {
	v := validator.New()
	// nama field di error = json tag
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if log == nil {
		log = zap.NewNop()
	}
	return &BillingController{Configs: configs, Engine: engine, Validate: v, Loc: loc, Log: log.Named("billing_http")}
}

func parseUUID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(c.Params(param)))
}

// ctx request; fiber tidak meneruskan ctx HTTP ke handler secara default.
func reqCtx(c *fiber.Ctx) context.Context {
	return c.UserContext()
}

// writeEngineError: ConfigError → 422, not found → 404, sisanya 500.
func (h *BillingController) writeEngineError(c *fiber.Ctx, err error) error {
	if ce, ok := service.AsConfigError(err); ok {
		return helper.JsonValidationErrorMsg(c, ce.Error(), ce.FieldMap())
	}
	if service.IsNotFound(err) {
		return helper.JsonError(c, http.StatusNotFound, err.Error())
	}
	h.Log.Error("billing request failed", zap.String("path", c.Path()), zap.Error(err))
	return helper.JsonError(c, http.StatusInternalServerError, err.Error())
}

/* =======================================================
   BILLING RULES
======================================================= */

// POST /api/a/billing-rules
func (h *BillingController) CreateRule(c *fiber.Ctx) error {
	schoolID, err := helperAuth.GetSchoolIDFromToken(c)
	if err != nil {
		return err
	}

	var in dto.BillingRuleCreateDTO
	if err := c.BodyParser(&in); err != nil {
		return helper.JsonError(c, http.StatusBadRequest, "invalid json")
	}
	if err := h.Validate.Struct(&in); err != nil {
		return helper.JsonValidationError(c, helper.ValidationFieldErrors(err))
	}
	if errs := in.CheckSemantics(); errs != nil {
		return helper.JsonValidationError(c, errs)
	}

	m := in.ToModel(schoolID)
	if _, err := service.RuleFromModel(m); err != nil {
		return h.writeEngineError(c, err)
	}
	if err := h.Configs.CreateRule(reqCtx(c), &m); err != nil {
		return h.writeEngineError(c, err)
	}
	return helper.JsonCreated(c, "billing rule created", dto.ToBillingRuleResponse(m))
}

// GET /api/a/billing-rules?type=&status=&q=
func (h *BillingController) ListRules(c *fiber.Ctx) error {
	schoolID, err := helperAuth.GetSchoolIDFromToken(c)
	if err != nil {
		return err
	}
	rows, err := h.Configs.ListRules(reqCtx(c), schoolID, repository.RuleFilter{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Q:      c.Query("q"),
	})
	if err != nil {
		return h.writeEngineError(c, err)
	}
	return helper.JsonList(c, "ok", dto.ToBillingRuleResponses(rows))
}

/* =======================================================
   BILLING CONFIGURATIONS
======================================================= */

// POST /api/a/billing-configurations
func (h *BillingController) CreateConfiguration(c *fiber.Ctx) error {
	schoolID, err := helperAuth.GetSchoolIDFromToken(c)
	if err != nil {
		return err
	}

	var in dto.BillingConfigurationCreateDTO
	if err := c.BodyParser(&in); err != nil {
		return helper.JsonError(c, http.StatusBadRequest, "invalid json")
	}
	if err := h.Validate.Struct(&in); err != nil {
		return helper.JsonValidationError(c, helper.ValidationFieldErrors(err))
	}
	if errs := in.CheckSemantics(); errs != nil {
		return helper.JsonValidationError(c, errs)
	}

	m := in.ToModel(schoolID, helperAuth.GetUserIDFromToken(c))

	// validasi penuh (termasuk referensi rule) sebelum disimpan
	cfg, err := service.ConfigurationFromModel(m)
	if err != nil {
		return h.writeEngineError(c, err)
	}
	found, err := h.Configs.GetRules(reqCtx(c), cfg.RuleIDs)
	if err != nil {
		return h.writeEngineError(c, err)
	}
	if _, err := service.BindRules(cfg, found); err != nil {
		return h.writeEngineError(c, err)
	}

	if err := h.Configs.CreateConfiguration(reqCtx(c), &m); err != nil {
		return h.writeEngineError(c, err)
	}
	return helper.JsonCreated(c, "billing configuration created", dto.ToBillingConfigurationResponse(m))
}

// GET /api/a/billing-configurations/:id
func (h *BillingController) GetConfiguration(c *fiber.Ctx) error {
	schoolID, err := helperAuth.GetSchoolIDFromToken(c)
	if err != nil {
		return err
	}
	id, err := parseUUID(c, "id")
	if err != nil {
		return helper.JsonError(c, http.StatusBadRequest, "invalid id")
	}
	m, err := h.Configs.GetConfiguration(reqCtx(c), schoolID, id)
	if err != nil {
		return h.writeEngineError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.ToBillingConfigurationResponse(m))
}

/* =======================================================
   GENERATE & PREVIEW
======================================================= */

func (h *BillingController) generateRequest(c *fiber.Ctx, schoolID, id uuid.UUID, in dto.GenerateRequestDTO) service.GenerateRequest {
	return service.GenerateRequest{
		SchoolID:        schoolID,
		ConfigurationID: id,
		RefreshUnpaid:   in.RefreshUnpaid,
		AsOf:            in.AsOfDate(),
		Location:        dbtime.GetSchoolLocation(c, h.Loc),
	}
}

// POST /api/a/billing-configurations/:id/generate
// body (opsional): { "refresh_unpaid": bool, "as_of": "YYYY-MM-DD" }
func (h *BillingController) Generate(c *fiber.Ctx) error {
	schoolID, err := helperAuth.GetSchoolIDFromToken(c)
	if err != nil {
		return err
	}
	id, err := parseUUID(c, "id")
	if err != nil {
		return helper.JsonError(c, http.StatusBadRequest, "invalid id")
	}

	var in dto.GenerateRequestDTO
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return helper.JsonError(c, http.StatusBadRequest, "invalid json")
		}
	}
	if err := h.Validate.Struct(&in); err != nil {
		return helper.JsonValidationError(c, helper.ValidationFieldErrors(err))
	}

	res, err := h.Engine.Generate(reqCtx(c), h.generateRequest(c, schoolID, id, in))
	if err != nil {
		return h.writeEngineError(c, err)
	}
	return helper.JsonOK(c, res.Message, res)
}

// GET /api/a/billing-configurations/:id/preview?as_of=YYYY-MM-DD
func (h *BillingController) Preview(c *fiber.Ctx) error {
	schoolID, err := helperAuth.GetSchoolIDFromToken(c)
	if err != nil {
		return err
	}
	id, err := parseUUID(c, "id")
	if err != nil {
		return helper.JsonError(c, http.StatusBadRequest, "invalid id")
	}

	in := dto.GenerateRequestDTO{AsOf: c.Query("as_of")}
	if err := h.Validate.Struct(&in); err != nil {
		return helper.JsonValidationError(c, helper.ValidationFieldErrors(err))
	}

	res, err := h.Engine.Preview(reqCtx(c), h.generateRequest(c, schoolID, id, in))
	if err != nil {
		return h.writeEngineError(c, err)
	}
	return helper.JsonOK(c, "ok", res)
}

/* =======================================================
   BALANCE
======================================================= */

// GET /api/a/students/:id/balance
func (h *BillingController) StudentBalance(c *fiber.Ctx) error {
	schoolID, err := helperAuth.GetSchoolIDFromToken(c)
	if err != nil {
		return err
	}
	studentID, err := parseUUID(c, "id")
	if err != nil {
		return helper.JsonError(c, http.StatusBadRequest, "invalid student id")
	}
	bal, err := h.Engine.Balance(reqCtx(c), schoolID, studentID)
	if err != nil {
		return h.writeEngineError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.StudentBalanceResponse{StudentID: studentID, Balance: bal})
}
