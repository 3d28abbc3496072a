package repository

import "errors"

// Causes wrapped under model.ErrValidation or model.ErrNotFound. Callers match
// the kind for status mapping and these for detail.
var (
	ErrEventNotFound   = errors.New("event not found")
	ErrSongNotFound    = errors.New("song not found")
	ErrRankingNotFound = errors.New("ranking not found")
	ErrNotRankable     = errors.New("song is not rankable")
	ErrAlreadyRanked   = errors.New("song already ranked by participant")
	ErrDepthReached    = errors.New("ranking depth reached")
	ErrDuplicateSongs  = errors.New("duplicate song in list")
	ErrNotPermutation  = errors.New("list is not a permutation of current rankings")
	ErrClosed          = errors.New("store closed")
)
