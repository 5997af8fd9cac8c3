// Package feed parses external merchant data feeds into import records.
package feed

import (
	"fmt"
	"strings"

	"github.com/aminimarket/marketplace-backend/internal/app/service"
	"github.com/aminimarket/marketplace-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

// Expected header names, matched case-insensitively. Column order in the
// sheet does not matter.
const (
	colExternalID   = "external_id"
	colBusinessName = "business_name"
	colEmail        = "email"
	colPhone        = "phone"
	colOwnerName    = "owner_name"
)

// ParseXLSX reads merchant records from the first sheet of an Excel feed
// file. The first row must be a header naming the columns above; unknown
// columns are ignored.
func ParseXLSX(path string) ([]service.FeedRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("feed file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read feed rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("feed file has no data rows")
	}

	columns := map[string]int{}
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colExternalID, colBusinessName, colEmail} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("feed file is missing required column %q", required)
		}
	}

	records := make([]service.FeedRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := service.FeedRecord{
			ExternalID:   cell(row, columns, colExternalID),
			BusinessName: cell(row, columns, colBusinessName),
			Email:        cell(row, columns, colEmail),
			Phone:        cell(row, columns, colPhone),
			OwnerName:    cell(row, columns, colOwnerName),
		}
		if record.ExternalID == "" && record.Email == "" {
			// skip blank trailing rows
			continue
		}
		records = append(records, record)
	}

	logger.Info("Parsed merchant feed", map[string]interface{}{
		"file":    path,
		"records": len(records),
	})
	return records, nil
}

func cell(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
