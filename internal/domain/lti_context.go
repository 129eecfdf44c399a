package domain

// LtiContext описывает LTI-контекст (курс), в котором создаются видео и ссылки на загрузку.
type LtiContext struct {
	ID        int64  `json:"id" db:"id"`
	ContextID string `json:"context_id" db:"context_id"`
}
