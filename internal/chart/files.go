package chart

import (
	"fmt"

	"azsales/internal/models"
)

// Ranked entity types that get a chart per period.
var Ranked = []models.EntityType{models.EntityBusinessType, models.EntityStore}

var entityLabels = map[models.EntityType]string{
	models.EntityGroup:        "集团",
	models.EntityBusinessType: "业态",
	models.EntityStore:        "门店",
}

var entityFilePrefixes = map[models.EntityType]string{
	models.EntityBusinessType: "bu",
	models.EntityStore:        "store",
}

var periodLabels = map[models.Period]string{
	models.PeriodDaily:   "日销",
	models.PeriodMonthly: "月度累计",
	models.PeriodYearly:  "年度累计",
}

// EntityLabel returns the display name of an entity type.
func EntityLabel(entityType models.EntityType) string {
	return entityLabels[entityType]
}

// PeriodLabel returns the display name of a period.
func PeriodLabel(period models.Period) string {
	return periodLabels[period]
}

// FileName returns the SVG file name of a ranked chart, e.g. store_monthly_top10.svg.
func FileName(entityType models.EntityType, period models.Period) string {
	return fmt.Sprintf("%s_%s_top%d.svg", entityFilePrefixes[entityType], period, TopN)
}

// Title returns the heading drawn on a ranked chart.
func Title(entityType models.EntityType, period models.Period, reportDate string) string {
	return fmt.Sprintf("%s%sTOP%d %s", EntityLabel(entityType), PeriodLabel(period), TopN, reportDate)
}
