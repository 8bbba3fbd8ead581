package warranty

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/inventario-garantias/internal/application/dto"
	"github.com/jhoicas/inventario-garantias/internal/application/inventory"
	"github.com/jhoicas/inventario-garantias/internal/domain"
	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-garantias/internal/domain/inventory"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
	"github.com/jhoicas/inventario-garantias/pkg/logger"
)

const dateLayout = "2006-01-02"

// LoanReferencePrefix prefijo de la referencia de los movimientos de préstamo.
const LoanReferencePrefix = "GARANTIA-"

// ClaimUseCase flujo de garantías. Al crear con préstamo, la garantía y la salida de stock
// se confirman juntas o no se confirma nada.
type ClaimUseCase struct {
	txRunner  TxRunner
	engine    StockEngine
	claimRepo repository.WarrantyClaimRepository
	metrics   Metrics
	log       *logger.Logger
	now       func() time.Time
}

// NewClaimUseCase construye el caso de uso. claimRepo se usa para lecturas y parches fuera de la tx de creación.
func NewClaimUseCase(txRunner TxRunner, engine StockEngine, claimRepo repository.WarrantyClaimRepository, metrics Metrics, log *logger.Logger) *ClaimUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ClaimUseCase{
		txRunner:  txRunner,
		engine:    engine,
		claimRepo: claimRepo,
		metrics:   metrics,
		log:       log.Named("warranty"),
		now:       time.Now,
	}
}

// CreateClaim valida, asocia el ítem por nombre/modelo, inserta la garantía y, si corresponde,
// registra la salida del préstamo en la misma transacción.
func (uc *ClaimUseCase) CreateClaim(ctx context.Context, userID string, in dto.CreateClaimRequest) (*dto.ClaimResponse, error) {
	trimClaimRequest(&in)
	if err := dto.Validate(in); err != nil {
		return nil, err
	}

	claim, err := uc.claimFromRequest(userID, in)
	if err != nil {
		return nil, err
	}
	keys := resolutionKeys(in.ProductCode, in.ProductDescription)

	var loan *entity.Movement
	var loanAttempted bool
	err = uc.txRunner.RunWarranty(ctx, func(
		movRepo repository.MovementRepository,
		itemRepo repository.StockItemRepository,
		claimRepo repository.WarrantyClaimRepository,
	) error {
		item, err := itemRepo.FindFirstByKeys(ctx, keys)
		if err != nil {
			return err
		}
		if item != nil {
			id := item.ID
			claim.StockItemID = &id
		}
		if err := claimRepo.Create(ctx, claim); err != nil {
			return err
		}
		if !claim.LoanActive || claim.LoanQuantity <= 0 || claim.StockItemID == nil {
			return nil
		}
		claimID := claim.ID
		loanAttempted = true
		loan, err = uc.engine.ApplyMovementInTx(ctx, movRepo, itemRepo, inventory.MovementInput{
			ItemID:          *claim.StockItemID,
			Kind:            entity.MovementKindWithdrawal,
			Quantity:        claim.LoanQuantity,
			UserID:          userID,
			Reference:       fmt.Sprintf("%s%d", LoanReferencePrefix, claimID),
			WarrantyClaimID: &claimID,
		})
		return err
	})
	if err != nil {
		if loanAttempted && uc.metrics != nil {
			uc.metrics.LoanRejected(inventory.RejectReason(err))
		}
		var insuf *domain.InsufficientStockError
		if errors.As(err, &insuf) {
			uc.log.Warn().
				Int64("item_id", insuf.ItemID).
				Int64("on_hand", insuf.OnHand).
				Int64("requested", insuf.Requested).
				Msg("préstamo de garantía rechazado por stock insuficiente")
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ClaimCreated(claim.StockItemID != nil, loan != nil)
		if loan != nil {
			uc.metrics.MovementApplied(loan.Kind, loan.Quantity)
		}
	}
	ev := uc.log.Info().Int64("claim_id", claim.ID).Str("status", claim.Status)
	if claim.StockItemID != nil {
		ev = ev.Int64("item_id", *claim.StockItemID)
	}
	if loan != nil {
		ev = ev.Int64("loan_movement_id", loan.ID).Int64("loan_quantity", loan.Quantity)
	}
	ev.Msg("garantía creada")

	res := ToClaimResponse(claim)
	if loan != nil {
		res.LoanMovement = inventory.ToMovementResponse(loan)
	}
	return res, nil
}

// UpdateClaim parcha estado, datos descriptivos y fechas. El préstamo no se reevalúa.
func (uc *ClaimUseCase) UpdateClaim(ctx context.Context, id int64, in dto.UpdateClaimRequest) (*dto.ClaimResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	claim, err := uc.claimRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, domain.ErrNotFound
	}

	setTrimmed(&claim.CustomerName, in.CustomerName)
	setTrimmed(&claim.CustomerDocument, in.CustomerDocument)
	setTrimmed(&claim.CustomerPhone, in.CustomerPhone)
	setTrimmed(&claim.CustomerAddress, in.CustomerAddress)
	setTrimmed(&claim.ProductDescription, in.ProductDescription)
	setTrimmed(&claim.ProblemDescription, in.ProblemDescription)
	if claim.CustomerName == "" || claim.CustomerDocument == "" || claim.ProductDescription == "" {
		return nil, domain.Invalid("los campos requeridos no pueden quedar vacíos",
			emptyFields(map[string]string{
				"customer_name":       claim.CustomerName,
				"customer_document":   claim.CustomerDocument,
				"product_description": claim.ProductDescription,
			})...)
	}
	if in.Status != nil {
		if !entity.ValidClaimStatus(*in.Status) {
			return nil, domain.Invalid("estado desconocido", "status")
		}
		claim.Status = *in.Status
	}
	if in.LimitDate != nil {
		d, err := parseDate(*in.LimitDate, "limit_date")
		if err != nil {
			return nil, err
		}
		claim.LimitDate = d
	}
	if in.PurchaseDate != nil {
		if *in.PurchaseDate == "" {
			claim.PurchaseDate = nil
		} else {
			d, err := parseDate(*in.PurchaseDate, "purchase_date")
			if err != nil {
				return nil, err
			}
			claim.PurchaseDate = &d
		}
	}
	if claim.LimitDate.Before(claim.OpenedAt) {
		return nil, domain.Invalid("la fecha límite es anterior a la apertura", "limit_date")
	}

	if err := uc.claimRepo.Update(ctx, claim); err != nil {
		return nil, err
	}
	uc.log.Info().Int64("claim_id", claim.ID).Str("status", claim.Status).Msg("garantía actualizada")
	return ToClaimResponse(claim), nil
}

// GetClaim obtiene una garantía por ID.
func (uc *ClaimUseCase) GetClaim(ctx context.Context, id int64) (*dto.ClaimResponse, error) {
	claim, err := uc.claimRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, domain.ErrNotFound
	}
	return ToClaimResponse(claim), nil
}

// ListClaims lista garantías filtrando por estado o ítem.
func (uc *ClaimUseCase) ListClaims(ctx context.Context, filter repository.WarrantyClaimFilter) (*dto.ClaimListResponse, error) {
	if filter.Status != "" && !entity.ValidClaimStatus(filter.Status) {
		return nil, domain.Invalid("estado desconocido", "status")
	}
	page := dto.PageRequest{Limit: filter.Limit, Offset: filter.Offset}
	page.DefaultPage()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	list, err := uc.claimRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ClaimResponse, 0, len(list))
	for _, c := range list {
		items = append(items, *ToClaimResponse(c))
	}
	return &dto.ClaimListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

func (uc *ClaimUseCase) claimFromRequest(userID string, in dto.CreateClaimRequest) (*entity.WarrantyClaim, error) {
	limit, err := parseDate(in.LimitDate, "limit_date")
	if err != nil {
		return nil, err
	}
	opened := truncateDay(uc.now())
	if in.OpenedAt != "" {
		if opened, err = parseDate(in.OpenedAt, "opened_at"); err != nil {
			return nil, err
		}
	}
	if limit.Before(opened) {
		return nil, domain.Invalid("la fecha límite es anterior a la apertura", "limit_date")
	}
	status := in.Status
	if status == "" {
		status = entity.ClaimStatusOpen
	}
	if !entity.ValidClaimStatus(status) {
		return nil, domain.Invalid("estado desconocido", "status")
	}

	claim := &entity.WarrantyClaim{
		CustomerName:       in.CustomerName,
		CustomerDocument:   in.CustomerDocument,
		CustomerPhone:      in.CustomerPhone,
		CustomerAddress:    in.CustomerAddress,
		ProductCode:        in.ProductCode,
		ProductDescription: in.ProductDescription,
		OpenedAt:           opened,
		LimitDate:          limit,
		Status:             status,
		ProblemDescription: in.ProblemDescription,
		CreatedBy:          userID,
	}
	if in.PurchaseDate != "" {
		d, err := parseDate(in.PurchaseDate, "purchase_date")
		if err != nil {
			return nil, err
		}
		claim.PurchaseDate = &d
	}
	if in.Loan != nil {
		if in.Loan.Quantity < 0 {
			return nil, domain.Invalid("la cantidad del préstamo no puede ser negativa", "loan.quantity")
		}
		claim.LoanActive = in.Loan.Active
		claim.LoanQuantity = in.Loan.Quantity
	}
	return claim, nil
}

// resolutionKeys normaliza código y descripción; las claves vacías o repetidas se descartan.
func resolutionKeys(values ...string) []string {
	keys := make([]string, 0, len(values))
	for _, v := range values {
		k := domaininv.SearchKey(v)
		if k == "" {
			continue
		}
		dup := false
		for _, existing := range keys {
			if existing == k {
				dup = true
				break
			}
		}
		if !dup {
			keys = append(keys, k)
		}
	}
	return keys
}

func trimClaimRequest(in *dto.CreateClaimRequest) {
	for _, s := range []*string{
		&in.CustomerName, &in.CustomerDocument, &in.CustomerPhone, &in.CustomerAddress,
		&in.ProductCode, &in.ProductDescription, &in.OpenedAt, &in.LimitDate,
		&in.PurchaseDate, &in.Status, &in.ProblemDescription,
	} {
		*s = strings.TrimSpace(*s)
	}
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func emptyFields(values map[string]string) []string {
	var out []string
	for _, name := range []string{"customer_name", "customer_document", "product_description"} {
		if values[name] == "" {
			out = append(out, name)
		}
	}
	return out
}

func parseDate(s, field string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, domain.Invalid("fecha inválida, formato YYYY-MM-DD", field)
	}
	return d, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ToClaimResponse convierte la entidad al DTO de salida.
func ToClaimResponse(c *entity.WarrantyClaim) *dto.ClaimResponse {
	res := &dto.ClaimResponse{
		ID:                 c.ID,
		CustomerName:       c.CustomerName,
		CustomerDocument:   c.CustomerDocument,
		CustomerPhone:      c.CustomerPhone,
		CustomerAddress:    c.CustomerAddress,
		ProductCode:        c.ProductCode,
		ProductDescription: c.ProductDescription,
		StockItemID:        c.StockItemID,
		OpenedAt:           c.OpenedAt.Format(dateLayout),
		LimitDate:          c.LimitDate.Format(dateLayout),
		Status:             c.Status,
		ProblemDescription: c.ProblemDescription,
		LoanActive:         c.LoanActive,
		LoanQuantity:       c.LoanQuantity,
		CreatedBy:          c.CreatedBy,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
	if c.PurchaseDate != nil {
		res.PurchaseDate = c.PurchaseDate.Format(dateLayout)
	}
	return res
}
