package model

import "errors"

var (
	ErrNoObstacleSelected = errors.New("no obstacle selected on runway")
	ErrUnknownObstacle    = errors.New("unknown obstacle")
	ErrUnknownProcedure   = errors.New("unknown redeclaration procedure")
)
