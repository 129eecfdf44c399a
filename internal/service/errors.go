package service

import "errors"

var (
	ErrAssetNotFound    = errors.New("asset not found")
	ErrUploadNotFound   = errors.New("upload url not found")
	ErrDeletionDisabled = errors.New("asset deletion is not allowed")
	ErrMissingFile      = errors.New("missing file")
)
