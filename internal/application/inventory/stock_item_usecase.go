package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-garantias/internal/application/dto"
	"github.com/jhoicas/inventario-garantias/internal/domain"
	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
	"github.com/jhoicas/inventario-garantias/internal/domain/inventory"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
	"github.com/jhoicas/inventario-garantias/pkg/logger"
)

// StockItemUseCase casos de uso del catálogo. Los contadores se manejan vía movimientos.
type StockItemUseCase struct {
	txRunner TxRunner
	repo     repository.StockItemRepository
	metrics  Metrics
	log      *logger.Logger
}

// NewStockItemUseCase construye el caso de uso.
func NewStockItemUseCase(txRunner TxRunner, repo repository.StockItemRepository, metrics Metrics, log *logger.Logger) *StockItemUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &StockItemUseCase{txRunner: txRunner, repo: repo, metrics: metrics, log: log.Named("catalog")}
}

// Create crea un ítem. Received y Withdrawn inician en 0 y OnHand = InitialQuantity.
func (uc *StockItemUseCase) Create(ctx context.Context, in dto.CreateStockItemRequest) (*dto.StockItemResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("el nombre es requerido", "name")
	}
	if in.InitialQuantity < 0 {
		return nil, domain.Invalid("la cantidad inicial no puede ser negativa", "initial_quantity")
	}
	if in.MinQuantity < 0 {
		return nil, domain.Invalid("el mínimo no puede ser negativo", "min_quantity")
	}
	if in.WarrantyMonths < 0 {
		return nil, domain.Invalid("los meses de garantía no pueden ser negativos", "warranty_months")
	}
	cost, err := money(in.Cost, "cost")
	if err != nil {
		return nil, err
	}
	price, err := money(in.SalePrice, "sale_price")
	if err != nil {
		return nil, err
	}

	model := strings.TrimSpace(in.Model)
	item := &entity.StockItem{
		Name:            name,
		Model:           model,
		NameKey:         inventory.SearchKey(name),
		ModelKey:        inventory.SearchKey(model),
		InitialQuantity: in.InitialQuantity,
		OnHand:          in.InitialQuantity,
		Cost:            cost,
		SalePrice:       price,
		MinQuantity:     in.MinQuantity,
		WarrantyMonths:  in.WarrantyMonths,
	}
	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	uc.log.Info().Int64("item_id", item.ID).Str("name", item.Name).Int64("initial_quantity", item.InitialQuantity).Msg("ítem creado")
	return ToStockItemResponse(item), nil
}

// GetByID obtiene un ítem por ID.
func (uc *StockItemUseCase) GetByID(ctx context.Context, id int64) (*dto.StockItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return ToStockItemResponse(item), nil
}

// Update actualiza datos descriptivos y comerciales. No toca InitialQuantity ni contadores.
func (uc *StockItemUseCase) Update(ctx context.Context, id int64, in dto.UpdateStockItemRequest) (*dto.StockItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.Invalid("el nombre es requerido", "name")
		}
		item.Name = name
		item.NameKey = inventory.SearchKey(name)
	}
	if in.Model != nil {
		item.Model = strings.TrimSpace(*in.Model)
		item.ModelKey = inventory.SearchKey(item.Model)
	}
	if in.Cost != nil {
		if item.Cost, err = money(in.Cost, "cost"); err != nil {
			return nil, err
		}
	}
	if in.SalePrice != nil {
		if item.SalePrice, err = money(in.SalePrice, "sale_price"); err != nil {
			return nil, err
		}
	}
	if in.MinQuantity != nil {
		if *in.MinQuantity < 0 {
			return nil, domain.Invalid("el mínimo no puede ser negativo", "min_quantity")
		}
		item.MinQuantity = *in.MinQuantity
	}
	if in.WarrantyMonths != nil {
		if *in.WarrantyMonths < 0 {
			return nil, domain.Invalid("los meses de garantía no pueden ser negativos", "warranty_months")
		}
		item.WarrantyMonths = *in.WarrantyMonths
	}
	if err := uc.repo.UpdateDetails(ctx, item); err != nil {
		return nil, err
	}
	return ToStockItemResponse(item), nil
}

// List lista el catálogo con búsqueda opcional y paginación. Lee fuera de transacción.
func (uc *StockItemUseCase) List(ctx context.Context, query string, limit, offset int) (*dto.StockItemListResponse, error) {
	page := dto.PageRequest{Limit: limit, Offset: offset}
	page.DefaultPage()
	list, err := uc.repo.List(ctx, repository.StockItemFilter{
		Query:  strings.TrimSpace(query),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.StockItemResponse, 0, len(list))
	for _, it := range list {
		items = append(items, *ToStockItemResponse(it))
	}
	return &dto.StockItemListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// Delete borra el ítem solo si ningún movimiento lo referencia.
// El bloqueo de fila impide que un movimiento concurrente se cuele entre el conteo y el borrado.
func (uc *StockItemUseCase) Delete(ctx context.Context, id int64) error {
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		itemRepo repository.StockItemRepository,
	) error {
		item, err := itemRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		n, err := movRepo.CountByItem(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrItemHasMovements
		}
		return itemRepo.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, domain.ErrItemHasMovements) && uc.metrics != nil {
			uc.metrics.ItemDeleteBlocked()
		}
		return err
	}
	uc.log.Info().Int64("item_id", id).Msg("ítem eliminado")
	return nil
}

func money(d *decimal.Decimal, field string) (decimal.Decimal, error) {
	if d == nil {
		return decimal.Zero, nil
	}
	if d.IsNegative() {
		return decimal.Zero, domain.Invalid("el valor no puede ser negativo", field)
	}
	return d.Round(2), nil
}

// ToStockItemResponse convierte la entidad al DTO de salida.
func ToStockItemResponse(it *entity.StockItem) *dto.StockItemResponse {
	return &dto.StockItemResponse{
		ID:              it.ID,
		Name:            it.Name,
		Model:           it.Model,
		InitialQuantity: it.InitialQuantity,
		Received:        it.Received,
		Withdrawn:       it.Withdrawn,
		OnHand:          it.OnHand,
		Cost:            it.Cost.StringFixed(2),
		SalePrice:       it.SalePrice.StringFixed(2),
		MinQuantity:     it.MinQuantity,
		BelowMinimum:    it.BelowMinimum(),
		WarrantyMonths:  it.WarrantyMonths,
		CreatedAt:       it.CreatedAt,
		UpdatedAt:       it.UpdatedAt,
	}
}
