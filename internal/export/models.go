package export

import "encoding/json"

// Record is one exported transaction with its decoded call and receipt.
type Record struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	Hash        string          `json:"hash"`
	BlockNumber uint64          `json:"blockNumber"`
	Input       json.RawMessage `json:"input"`
	Output      json.RawMessage `json:"output"`
}

// Summary counts what a run discovered and wrote.
type Summary struct {
	Sent     int
	Received int
	Unique   int
	Skipped  int
	Exported int
}
