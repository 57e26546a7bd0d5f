package notify

import (
	"context"

	"PerpScan/internal/domain/models"
	"PerpScan/pkg/logger"
)

// LogNotifier writes each detected opportunity to the structured log. It is
// the default sink; richer channels (webhooks, chat bots) would implement the
// same Notifier interface.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, opps []models.Opportunity) {
	for _, opp := range opps {
		switch opp.Kind {
		case models.OpportunityPrice:
			n.log.Info("price arbitrage",
				logger.String("symbol", opp.Symbol),
				logger.String("buy", opp.BuyProvider),
				logger.String("sell", opp.SellProvider),
				logger.Float64("buyPrice", opp.BuyPrice),
				logger.Float64("sellPrice", opp.SellPrice),
				logger.Float64("profit", opp.Profit))
		case models.OpportunityFunding:
			n.log.Info("funding arbitrage",
				logger.String("symbol", opp.Symbol),
				logger.String("long", opp.LongProvider),
				logger.String("short", opp.ShortProvider),
				logger.Float64("longRate", opp.LongRate),
				logger.Float64("shortRate", opp.ShortRate),
				logger.Float64("annualizedPct", opp.AnnualizedDiffPct))
		}
	}
}
