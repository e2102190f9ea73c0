package utils

import (
	"fmt"

	"library-borrow-engine/internal/models"
)

func ExportData(logs []models.AuditLog) error {
	for _, log := range logs {
		//change with actual calls
		fmt.Println(log.Timestamp, log.ID, log.Entity, log.Action)
	}
	return nil
}
