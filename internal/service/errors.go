package service

import "errors"

var (
	ErrNotFound         = errors.New("error not found")
	ErrUnknownSource    = errors.New("error unknown statement source")
	ErrInvalidAssetType = errors.New("error invalid asset type")
	ErrNoSnapshots      = errors.New("error no snapshots stored yet")
)
