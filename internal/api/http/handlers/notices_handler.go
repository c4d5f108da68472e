package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/notice-engine/internal/api/dto"
	"github.com/spec-kit/notice-engine/internal/domain"
	"github.com/spec-kit/notice-engine/internal/repository"
	"github.com/spec-kit/notice-engine/pkg/util"
)

// NoticesHandler exposes the deadline math to the CRUD layer so a notice can
// be checked against its contract's legal terms before it is emitted.
type NoticesHandler struct {
	contracts repository.ContractRepository
}

// NewNoticesHandler constructs handler.
func NewNoticesHandler(contracts repository.ContractRepository) *NoticesHandler {
	return &NoticesHandler{contracts: contracts}
}

// Validate POST /api/notices/validate.
func (h *NoticesHandler) Validate(c *fiber.Ctx) error {
	var req dto.ValidateNoticeRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.ContractID == "" || req.EmissionDate.IsZero() {
		return util.NewValidationError("contract_id and emission_date required", nil)
	}

	contract, err := h.contracts.GetByID(c.UserContext(), req.ContractID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("contract", map[string]any{"contract_id": req.ContractID})
		}
		return err
	}

	noticeType := domain.NoticeType(req.NoticeType)
	if !contract.Legal.AllowsNoticeType(noticeType) {
		return util.NewValidationError("notice type not permitted by contract", map[string]any{
			"notice_type": req.NoticeType,
			"contract_id": req.ContractID,
		})
	}

	minimum := domain.EffectiveDate(req.EmissionDate, contract.Legal)
	if req.EffectiveDate != nil {
		if err := domain.ValidateDeadline(req.EmissionDate, *req.EffectiveDate, contract.Legal); err != nil {
			return err
		}
	}

	return c.JSON(fiber.Map{"data": dto.ValidateNoticeResponse{
		ContractID:            contract.ID,
		NoticeType:            req.NoticeType,
		EmissionDate:          req.EmissionDate,
		MinimumEffectiveDate:  minimum,
		NoticeDurationDays:    contract.Legal.NoticeDurationDays,
		CountBusinessDaysOnly: contract.Legal.CountBusinessDaysOnly,
		MonthEndProration:     contract.Legal.MonthEndProration,
	}})
}
