package ronin

import "encoding/json"

// Page is one page of a sent/received transaction listing.
type Page struct {
	Transactions []string `json:"transactions"`
}

// pageEnvelope keeps the raw field so a missing key can be told apart
// from an empty list.
type pageEnvelope struct {
	Transactions json.RawMessage `json:"transactions"`
}

// Transaction is the subset of getTransaction the exporter needs.
type Transaction struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Hash        string `json:"hash"`
	BlockNumber uint64 `json:"blockNumber"`
}
