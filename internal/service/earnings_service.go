package service

import (
	"context"
	"sort"
	"time"

	"threadkart/internal/model"
	"threadkart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// earningsService implements EarningsService.
type earningsService struct {
	earningRepo repository.EarningRepository
	now         func() time.Time
	logger      zerolog.Logger
}

// NewEarningsService creates a new earnings read-model service.
func NewEarningsService(earningRepo repository.EarningRepository, logger zerolog.Logger) EarningsService {
	return &earningsService{
		earningRepo: earningRepo,
		now:         time.Now,
		logger:      logger.With().Str("service", "earnings").Logger(),
	}
}

// ReturnWindow lists a seller's items enriched with derived window fields.
func (s *earningsService) ReturnWindow(ctx context.Context, sellerID uuid.UUID, query ReturnWindowQuery) (*model.ReturnWindowResponse, error) {
	filter, pagination := s.normalize(query)

	total, err := s.earningRepo.CountReturnWindowItems(ctx, sellerID, filter)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.TotalPages = (total + pagination.Limit - 1) / pagination.Limit

	items, orderNumbers, err := s.earningRepo.ListReturnWindowItems(ctx, sellerID, filter)
	if err != nil {
		return nil, err
	}

	enriched := make([]model.ReturnWindowItem, 0, len(items))
	for _, item := range items {
		row, err := s.enrich(ctx, item, orderNumbers[item.OrderID])
		if err != nil {
			return nil, err
		}
		enriched = append(enriched, row)
	}

	return &model.ReturnWindowResponse{Items: enriched, Pagination: pagination}, nil
}

// ReturnWindowStatus groups the listing by the calendar day each item's
// window closes, for the dashboard timeline view.
func (s *earningsService) ReturnWindowStatus(ctx context.Context, sellerID uuid.UUID, query ReturnWindowQuery) (*model.ReturnWindowStatusResponse, error) {
	listing, err := s.ReturnWindow(ctx, sellerID, query)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string][]model.ReturnWindowItem)
	for _, item := range listing.Items {
		byDay[s.transitionDay(item)] = append(byDay[s.transitionDay(item)], item)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	groups := make([]model.ReturnWindowDayGroup, 0, len(days))
	for _, day := range days {
		groups = append(groups, model.ReturnWindowDayGroup{Day: day, Items: byDay[day]})
	}

	return &model.ReturnWindowStatusResponse{Groups: groups, Pagination: listing.Pagination}, nil
}

// enrich computes the derived fields for one item.
func (s *earningsService) enrich(ctx context.Context, item model.OrderItem, orderNumber string) (model.ReturnWindowItem, error) {
	row := model.ReturnWindowItem{
		OrderItem:   item,
		OrderNumber: orderNumber,
	}

	if item.ReturnWindowStart != nil && item.ReturnWindowEnd != nil {
		now := s.now()
		row.TimeRemaining = timeRemaining(now, *item.ReturnWindowEnd)
		row.Progress = windowProgress(now, *item.ReturnWindowStart, *item.ReturnWindowEnd)
	}

	if item.ReturnWindowStatus == model.ReturnWindowCompleted {
		earning, err := s.earningRepo.GetByOrderItem(ctx, item.ID, model.EarningTypePostReturnWindow)
		if err != nil {
			return row, err
		}
		if earning != nil {
			row.Earning = earning
			row.CreditedAmount = &earning.Amount
		}
	}

	return row, nil
}

// transitionDay picks the calendar day an item's window state changed:
// returned items use the return time, completed items the credit time, and
// active items the day their window closes.
func (s *earningsService) transitionDay(item model.ReturnWindowItem) string {
	switch {
	case item.ReturnWindowStatus == model.ReturnWindowReturned && item.ReturnedAt != nil:
		return item.ReturnedAt.Format("2006-01-02")
	case item.ReturnWindowStatus == model.ReturnWindowCompleted && item.EarningsCreditedAt != nil:
		return item.EarningsCreditedAt.Format("2006-01-02")
	case item.ReturnWindowEnd != nil:
		return item.ReturnWindowEnd.Format("2006-01-02")
	default:
		return "unknown"
	}
}

// normalize applies defaults and bounds to the query parameters.
func (s *earningsService) normalize(query ReturnWindowQuery) (repository.ReturnWindowFilter, model.Pagination) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	filter := repository.ReturnWindowFilter{
		Status:  query.Status,
		OrderID: query.OrderID,
		SortBy:  query.SortBy,
		SortDir: query.SortDir,
		Limit:   limit,
		Offset:  (page - 1) * limit,
	}
	pagination := model.Pagination{Page: page, Limit: limit}
	return filter, pagination
}

// timeRemaining breaks down the time left until end, clamped at zero.
func timeRemaining(now, end time.Time) model.TimeRemaining {
	remaining := end.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	return model.TimeRemaining{
		Days:    int(remaining / (24 * time.Hour)),
		Hours:   int(remaining % (24 * time.Hour) / time.Hour),
		Minutes: int(remaining % time.Hour / time.Minute),
	}
}

// windowProgress is the percent of the window elapsed at now, clamped to
// [0, 100].
func windowProgress(now, start, end time.Time) float64 {
	total := end.Sub(start)
	if total <= 0 {
		return 100
	}

	elapsed := now.Sub(start)
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= total {
		return 100
	}
	return float64(elapsed) / float64(total) * 100
}
