package domain

// Asset ссылается на видео в Mux. Метаданные в базе не хранятся.
type Asset struct {
	ID           int64  `json:"id" db:"id"`
	MuxID        string `json:"mux_id" db:"mux_id"`
	LtiContextID int64  `json:"lti_context_id" db:"lti_context_id"`
	// ContextID заполняется при выборке с join по lti_contexts
	ContextID string `json:"context_id,omitempty" db:"context_id"`
}
