package extended

// wsEntry is one side entry of the per-market order-book stream: price and
// quantity as decimal strings.
type wsEntry struct {
	P string `json:"p"`
	Q string `json:"q"`
}

type wsBookData struct {
	M string    `json:"m"` // market name
	B []wsEntry `json:"b"`
	A []wsEntry `json:"a"`
}

type wsMessage struct {
	Ts   int64      `json:"ts"`
	Type string     `json:"type"`
	Seq  int64      `json:"seq"`
	Data wsBookData `json:"data"`
}

// marketsResponse is the GET /api/v1/info/markets payload.
type marketsResponse struct {
	Status string `json:"status"`
	Data   []struct {
		Name        string `json:"name"`
		MarketStats struct {
			FundingRate string `json:"fundingRate"`
		} `json:"marketStats"`
	} `json:"data"`
}
