package services

import "errors"

// ErrRunInProgress is returned by RunGate when a run is already executing.
var ErrRunInProgress = errors.New("report run already in progress")
