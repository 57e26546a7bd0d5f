package hyperliquid

import "encoding/json"

// wsLevel is one price level as Hyperliquid sends it: decimal strings plus an
// order count.
type wsLevel struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// bboData is the top-of-book stream payload: bbo[0] is the best bid,
// bbo[1] the best ask.
type bboData struct {
	Coin string    `json:"coin"`
	Time int64     `json:"time"`
	Bbo  []wsLevel `json:"bbo"`
}

// bookData is the full-depth l2Book payload: levels[0] bids, levels[1] asks.
type bookData struct {
	Coin   string      `json:"coin"`
	Time   int64       `json:"time"`
	Levels [][]wsLevel `json:"levels"`
}

type subscription struct {
	Type string `json:"type"`
	Coin string `json:"coin"`
}

type subscribeRequest struct {
	Method       string       `json:"method"`
	Subscription subscription `json:"subscription"`
}

// metaAndAssetCtxs responds with a two-element array: universe metadata and
// per-asset contexts, indexed in parallel by asset position.
type universeMeta struct {
	Universe []struct {
		Name string `json:"name"`
	} `json:"universe"`
}

type assetCtx struct {
	Funding string `json:"funding"`
}

type infoRequest struct {
	Type string `json:"type"`
}
