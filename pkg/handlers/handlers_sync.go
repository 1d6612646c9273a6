package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/turnoverhq/turnover-api/pkg/models"
)

// SyncObligations ingests a batch of checkout events from the calendar
// sync collaborator. Each event is keyed by its external UID: unknown
// UIDs create pending obligations, known pending ones track checkout-date
// and property changes, and anything already assigned or completed is
// left alone so a feed refresh never undoes scheduling work.
func (h *Handler) SyncObligations(c *gin.Context) {
	var input models.SyncInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Validate the whole batch before touching the store
	dates := make(map[string]time.Time, len(input.Obligations))
	for _, ev := range input.Obligations {
		d, err := parseDate(ev.CheckoutDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid checkout_date for " + ev.ExternalUID})
			return
		}
		dates[ev.ExternalUID] = d
	}

	created := 0
	updated := 0
	skipped := 0

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		for _, ev := range input.Obligations {
			var property models.Property
			if err := tx.First(&property, ev.PropertyID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					skipped++
					continue
				}
				return err
			}

			var existing models.Obligation
			err := tx.Where("external_uid = ?", ev.ExternalUID).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				obligation := models.Obligation{
					PropertyID:   ev.PropertyID,
					ExternalUID:  ev.ExternalUID,
					CheckoutDate: dates[ev.ExternalUID],
					Status:       models.StatusPending,
				}
				if err := tx.Create(&obligation).Error; err != nil {
					return err
				}
				created++
			case err != nil:
				return err
			case existing.Status == models.StatusPending:
				err := tx.Model(&existing).Updates(map[string]interface{}{
					"checkout_date": dates[ev.ExternalUID],
					"property_id":   ev.PropertyID,
				}).Error
				if err != nil {
					return err
				}
				updated++
			default:
				skipped++
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sync failed"})
		return
	}

	h.RecordUsage(c, len(input.Obligations))

	c.JSON(http.StatusOK, gin.H{
		"created": created,
		"updated": updated,
		"skipped": skipped,
	})
}
