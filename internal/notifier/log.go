package notifier

import (
	"context"
	"log/slog"

	"github.com/pauljones0/property-scanner/internal/models"
)

const logPreviewLimit = 5

// Log writes a preview of the batch to the default logger.
type Log struct {
	logger *slog.Logger
}

func NewLog() *Log {
	return &Log{}
}

func (n *Log) Notify(_ context.Context, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	logger := n.logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("New listings", "count", len(listings))
	for i, l := range listings {
		if i == logPreviewLimit {
			logger.Info("More listings not shown", "remaining", len(listings)-logPreviewLimit)
			break
		}
		logger.Info(displayTitle(l),
			"price", l.PriceText,
			"address", l.Address,
			"source", l.Source,
			"link", l.Link,
		)
	}
	return nil
}
