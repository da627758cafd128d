package models

// APIResponse is the standard response envelope of the producer API.
type APIResponse struct {
	Status bool        `json:"status"`
	Msg    string      `json:"msg"`
	Obj    interface{} `json:"obj"`
}

// StockRequest is the body of POST /api/stocks and POST /api/stocks/refresh.
type StockRequest struct {
	Ticker string `json:"ticker"`
}

// TaskResponse reports a queued task back to the producer.
type TaskResponse struct {
	Queued   bool     `json:"queued"`
	TaskID   string   `json:"task_id"`
	TaskType TaskType `json:"task_type"`
	Ticker   string   `json:"ticker"`
}
