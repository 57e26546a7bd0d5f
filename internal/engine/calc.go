package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"PerpScan/internal/domain/models"
)

// priceOpportunities computes both trade directions between two order books.
// Each leg pays only the taker fee, applied to its own trade price; the
// estimate is deliberately conservative and ignores the maker schedule.
func priceOpportunities(symbol string, now time.Time,
	providerA string, bookA models.OrderbookSnapshot, feesA Fees,
	providerB string, bookB models.OrderbookSnapshot, feesB Fees,
	minProfit float64) []models.Opportunity {

	var opps []models.Opportunity

	// buy at A's ask, sell at B's bid
	if opp, ok := directionalProfit(symbol, now,
		providerA, bookA.BestAsk, feesA.TakerPct,
		providerB, bookB.BestBid, feesB.TakerPct, minProfit); ok {
		opps = append(opps, opp)
	}
	// buy at B's ask, sell at A's bid
	if opp, ok := directionalProfit(symbol, now,
		providerB, bookB.BestAsk, feesB.TakerPct,
		providerA, bookA.BestBid, feesA.TakerPct, minProfit); ok {
		opps = append(opps, opp)
	}
	return opps
}

func directionalProfit(symbol string, now time.Time,
	buyProvider string, buyPrice, buyTakerPct float64,
	sellProvider string, sellPrice, sellTakerPct float64,
	minProfit float64) (models.Opportunity, bool) {

	buyFee := buyPrice * (buyTakerPct / 100)
	sellFee := sellPrice * (sellTakerPct / 100)
	profit := sellPrice - sellFee - buyPrice - buyFee

	if profit < minProfit {
		return models.Opportunity{}, false
	}
	return models.Opportunity{
		Kind:         models.OpportunityPrice,
		Symbol:       symbol,
		BuyProvider:  buyProvider,
		SellProvider: sellProvider,
		BuyPrice:     buyPrice,
		SellPrice:    sellPrice,
		Profit:       profit,
		Timestamp:    now,
	}, true
}

var annualizeFactor = decimal.NewFromInt(24 * 365 * 100)

// fundingOpportunity annualizes the funding-rate differential between two
// providers. The long leg is the higher-rate side, the short leg the lower.
func fundingOpportunity(symbol string, now time.Time,
	providerA string, fundingA models.FundingSnapshot,
	providerB string, fundingB models.FundingSnapshot,
	minAPY float64) (models.Opportunity, bool) {

	rateA := decimal.NewFromFloat(fundingA.FundingRate)
	rateB := decimal.NewFromFloat(fundingB.FundingRate)
	diff := rateA.Sub(rateB)
	annualized := diff.Abs().Mul(annualizeFactor)

	if annualized.LessThan(decimal.NewFromFloat(minAPY)) {
		return models.Opportunity{}, false
	}

	long, short := providerA, providerB
	longRate, shortRate := fundingA.FundingRate, fundingB.FundingRate
	if diff.Sign() < 0 {
		long, short = providerB, providerA
		longRate, shortRate = fundingB.FundingRate, fundingA.FundingRate
	}

	apy, _ := annualized.Float64()
	return models.Opportunity{
		Kind:              models.OpportunityFunding,
		Symbol:            symbol,
		LongProvider:      long,
		ShortProvider:     short,
		LongRate:          longRate,
		ShortRate:         shortRate,
		AnnualizedDiffPct: apy,
		Timestamp:         now,
	}, true
}
