package postgres

import (
	"gorm.io/gorm"

	"github.com/placement-portal/daily-quiz-service/internal/repositories"
)

func applyTopicFilters(query *gorm.DB, filters repositories.TopicFilters) *gorm.DB {
	if filters.Track != nil {
		query = query.Where("track = ?", *filters.Track)
	}
	if filters.DateFrom != nil {
		query = query.Where("quiz_date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("quiz_date <= ?", *filters.DateTo)
	}
	return query
}

func applyPaginationAndSort(query *gorm.DB, filters repositories.TopicFilters) *gorm.DB {
	order := "quiz_date DESC"
	if filters.SortOrder == "asc" {
		order = "quiz_date ASC"
	}
	query = query.Order(order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
