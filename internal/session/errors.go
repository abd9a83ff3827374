package session

import "errors"

var (
	ErrAirportNotFound  = errors.New("airport not found")
	ErrRunwayNotFound   = errors.New("runway not found")
	ErrObstacleNotFound = errors.New("obstacle not found")
	ErrSeedObstacle     = errors.New("built-in obstacles cannot be changed")
)
