package domain

import (
	"fmt"
	"time"
)

// UploadStatus - статус прямой загрузки в Mux.
// https://docs.mux.com/api-reference/video#tag/direct-uploads
type UploadStatus string

const (
	UploadStatusWaiting   UploadStatus = "waiting"
	UploadStatusCreated   UploadStatus = "asset_created"
	UploadStatusErrored   UploadStatus = "errored"
	UploadStatusCancelled UploadStatus = "cancelled"
	UploadStatusTimedOut  UploadStatus = "timed_out"
)

// UploadExpiryMargin добавляется к сроку действия ссылки перед удалением тикета.
const UploadExpiryMargin = 10 * time.Second

// ParseUploadStatus возвращает ошибку для неизвестного статуса.
func ParseUploadStatus(s string) (UploadStatus, error) {
	switch status := UploadStatus(s); status {
	case UploadStatusWaiting, UploadStatusCreated, UploadStatusErrored,
		UploadStatusCancelled, UploadStatusTimedOut:
		return status, nil
	default:
		return "", fmt.Errorf("unknown upload status: %q", s)
	}
}

// UploadTicket - локальная запись о ссылке на прямую загрузку.
type UploadTicket struct {
	ID           int64        `json:"id" db:"id"`
	MuxID        string       `json:"mux_id" db:"mux_id"`
	LtiContextID int64        `json:"lti_context_id" db:"lti_context_id"`
	Status       UploadStatus `json:"status" db:"status"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// ExpiryCutoff возвращает момент, до которого (включительно) созданные тикеты считаются истекшими.
func ExpiryCutoff(now time.Time, validity, margin time.Duration) time.Time {
	return now.Add(-validity - margin)
}
